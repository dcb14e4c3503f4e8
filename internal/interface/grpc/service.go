package grpcservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	lockdv1 "github.com/lockbox-labs/lockd/api-spec/lockd/v1"
	"github.com/lockbox-labs/lockd/internal/config"
	"github.com/lockbox-labs/lockd/internal/infrastructure/metrics"
	interfaces "github.com/lockbox-labs/lockd/internal/interface"
	"github.com/lockbox-labs/lockd/internal/interface/grpc/handlers"
	"github.com/lockbox-labs/lockd/internal/interface/grpc/interceptors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	grpchealth "google.golang.org/grpc/health/grpc_health_v1"
)

const initTimeout = 30 * time.Second

type service struct {
	version       string
	config        Config
	appConfig     *config.Config
	server        *http.Server
	grpcServer    *grpc.Server
	gatewayConn   *grpc.ClientConn
	metricsServer *metrics.Server
	healthSvc     *health.Server
	readinessSvc  *interceptors.ReadinessService
	appSvcStarted atomic.Bool
}

func NewService(
	version string, svcConfig Config, appConfig *config.Config,
) (interfaces.Service, error) {
	if err := svcConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service config: %s", err)
	}
	if err := appConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app config: %s", err)
	}

	return &service{
		version:   version,
		config:    svcConfig,
		appConfig: appConfig,
	}, nil
}

func (s *service) Start() error {
	if err := s.newServer(); err != nil {
		return err
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server stopped")
		}
	}()
	log.Infof("started listening at %s", s.config.address())

	if s.metricsServer != nil {
		s.metricsServer.Start()
	}

	if err := s.startAppServices(); err != nil {
		s.stop()
		return err
	}
	return nil
}

func (s *service) Stop() {
	s.stop()
	log.Info("shutdown service")
}

func (s *service) stop() {
	if s.healthSvc != nil {
		s.healthSvc.Shutdown()
	}

	if s.appSvcStarted.CompareAndSwap(true, false) {
		if s.readinessSvc != nil {
			s.readinessSvc.MarkAppServiceStopped()
		}
	}

	// Hard-close HTTP listeners/conns first to avoid mixed HTTP/gRPC window.
	if s.server != nil {
		_ = s.server.Close()
	}
	if s.gatewayConn != nil {
		_ = s.gatewayConn.Close()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.metricsServer != nil {
		s.metricsServer.Stop()
	}

	// The app service owns the db and bank connections, release them last.
	appSvc, _ := s.appConfig.AppService()
	if appSvc != nil {
		appSvc.Stop()
	}
}

func (s *service) startAppServices() error {
	if !s.appSvcStarted.CompareAndSwap(false, true) {
		// app already started, skip
		return nil
	}

	appSvc, err := s.appConfig.AppService()
	if err != nil {
		s.appSvcStarted.Store(false)
		return fmt.Errorf("failed to create app service: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := appSvc.Initialize(ctx, s.appConfig.Owner, s.appConfig.FeePercent); err != nil {
		s.appSvcStarted.Store(false)
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}

	if ledgerMetrics := s.appConfig.LedgerMetrics(); ledgerMetrics != nil {
		ledgerMetrics.Start()
	}

	if err := appSvc.Start(); err != nil {
		s.appSvcStarted.Store(false)
		return fmt.Errorf("failed to start app service: %w", err)
	}
	log.Info("started app service")

	s.readinessSvc.MarkAppServiceStarted()
	s.healthSvc.SetServingStatus("", grpchealth.HealthCheckResponse_SERVING)
	s.healthSvc.SetServingStatus(
		lockdv1.LedgerService_ServiceDesc.ServiceName, grpchealth.HealthCheckResponse_SERVING,
	)

	log.Info("ledger service is now ready")
	return nil
}

func (s *service) newServer() error {
	s.readinessSvc = interceptors.NewReadinessService()

	grpcConfig := []grpc.ServerOption{
		interceptors.UnaryInterceptor(s.readinessSvc),
		interceptors.StreamInterceptor(s.readinessSvc),
	}

	grpcServer := grpc.NewServer(grpcConfig...)

	appSvc, err := s.appConfig.AppService()
	if err != nil {
		return fmt.Errorf("failed to create app service: %w", err)
	}
	ledgerHandler := handlers.NewLedgerServiceHandler(s.version, appSvc)
	lockdv1.RegisterLedgerServiceServer(grpcServer, ledgerHandler)

	healthSvc := health.NewServer()
	healthSvc.SetServingStatus("", grpchealth.HealthCheckResponse_NOT_SERVING)
	healthSvc.SetServingStatus(
		lockdv1.LedgerService_ServiceDesc.ServiceName, grpchealth.HealthCheckResponse_NOT_SERVING,
	)
	grpchealth.RegisterHealthServer(grpcServer, healthSvc)

	conn, err := grpc.NewClient(
		s.config.gatewayAddress(), grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return err
	}
	gwmux, err := newGateway(conn)
	if err != nil {
		// nolint
		conn.Close()
		return err
	}
	handler := router(grpcServer, gwmux)
	mux := http.NewServeMux()
	mux.Handle("/", handler)

	s.grpcServer = grpcServer
	s.gatewayConn = conn
	s.healthSvc = healthSvc
	s.server = &http.Server{
		Addr:              s.config.address(),
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.config.hasMetricsPort() {
		s.metricsServer = metrics.NewServer(s.config.MetricsPort, s.appConfig.MetricsRegistry())
	}
	return nil
}

func router(
	grpcServer *grpc.Server, grpcGateway http.Handler,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isOptionRequest(r) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Headers", "*")
			w.Header().Add("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			return
		}

		if isHttpRequest(r) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Headers", "*")
			w.Header().Add("Access-Control-Allow-Methods", "POST, GET, OPTIONS")

			grpcGateway.ServeHTTP(w, r)
			return
		}
		grpcServer.ServeHTTP(w, r)
	})
}

func isOptionRequest(req *http.Request) bool {
	return req.Method == http.MethodOptions
}

func isHttpRequest(req *http.Request) bool {
	return req.Method == http.MethodGet ||
		strings.Contains(req.Header.Get("Content-Type"), "application/json")
}
