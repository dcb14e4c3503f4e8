package main

import (
	"fmt"
	"time"

	"github.com/lockbox-labs/lockd/internal/config"
	"github.com/urfave/cli/v2"
)

const (
	urlFlagName       = "url"
	callerFlagName    = "caller"
	indexFlagName     = "index"
	depositorFlagName = "depositor"
	durationFlagName  = "duration"
	nativeFlagName    = "native"
	tokenFlagName     = "token"
	assetFlagName     = "asset"
	recordIdFlagName  = "id"

	timeout = 30 * time.Second
)

var (
	urlFlag = &cli.StringFlag{
		Name:    urlFlagName,
		Usage:   "the address where to reach the lockd server",
		Value:   fmt.Sprintf("127.0.0.1:%d", config.DefaultPort),
		EnvVars: []string{"LOCKD_URL"},
	}
	callerFlag = func(required bool) *cli.StringFlag {
		return &cli.StringFlag{
			Name:     callerFlagName,
			Usage:    "address of the account on whose behalf the request is made",
			EnvVars:  []string{"LOCKD_CALLER"},
			Required: required,
		}
	}
	indexFlag = &cli.Uint64Flag{
		Name:     indexFlagName,
		Usage:    "per-depositor index of the deposit record",
		Required: true,
	}
	depositorFlag = &cli.StringFlag{
		Name:  depositorFlagName,
		Usage: "address of the depositor, defaults to the caller",
	}
	durationFlag = &cli.DurationFlag{
		Name:  durationFlagName,
		Usage: "how long the deposit stays locked, eg. 24h",
	}
	lockNativeFlag = &cli.Uint64Flag{
		Name:  nativeFlagName,
		Usage: "native value submitted with the deposit",
	}
	withdrawNativeFlag = &cli.Uint64Flag{
		Name:  nativeFlagName,
		Usage: "native fees to withdraw",
	}
	tokenFlag = &cli.StringSliceFlag{
		Name:  tokenFlagName,
		Usage: "token leg in the form <address>:<amount>, can be repeated",
	}
	assetFlag = &cli.StringFlag{
		Name:  assetFlagName,
		Usage: "token address or 'native'",
		Value: "native",
	}
	recordIdFlag = &cli.Uint64Flag{
		Name:     recordIdFlagName,
		Usage:    "global id of the deposit record",
		Required: true,
	}
)
