package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lockbox-labs/lockd/internal/config"
	grpcservice "github.com/lockbox-labs/lockd/internal/interface/grpc"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Version will be set during build time
var Version string

func main() {
	app := cli.NewApp()
	app.Version = Version
	app.Name = "lockd"
	app.Usage = "run or interact with the time-locked custody ledger"
	app.UsageText = "Run the lockd server or query and operate on a running one"
	app.Flags = config.Flags
	app.Action = mainAction
	app.Commands = append(app.Commands,
		infoCmd,
		lockCmd,
		unlockCmd,
		withdrawCmd,
		recordCmd,
		recordsCmd,
		feePoolCmd,
		historyCmd,
	)

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func mainAction(ctx *cli.Context) error {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	svcConfig := grpcservice.Config{
		Port:        cfg.Port,
		MetricsPort: cfg.MetricsPort,
	}

	svc, err := grpcservice.NewService(Version, svcConfig, cfg)
	if err != nil {
		return err
	}

	log.Infof("lockd config: %s", cfg)

	log.Info("starting service...")
	if err := svc.Start(); err != nil {
		return err
	}

	log.RegisterExitHandler(svc.Stop)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)

	return nil
}
