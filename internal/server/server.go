package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gatekeeper/internal/auth"
	"gatekeeper/internal/config"
	"gatekeeper/internal/logging"
	"gatekeeper/internal/middlewares"
	"gatekeeper/internal/upstream"
	"gatekeeper/internal/version"

	"github.com/prometheus/client_golang/prometheus"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
)

const shutdownTimeout = 30 * time.Second

type Server struct {
	cfg         *config.Config
	logger      *slog.Logger
	appCtx      *middlewares.AppContext
	httpServer  *http.Server
	debugServer *http.Server
	cancel      context.CancelFunc
}

func New(cfg *config.Config) (*Server, error) {
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())

	appCtx, err := newAppContext(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, err
	}

	router := setupRouter(appCtx)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var debugServer *http.Server
	if cfg.Server.Debug != nil && cfg.Server.Debug.Enabled {
		if err := prometheus.Register(versioncollector.NewCollector(version.Program)); err != nil {
			logger.Debug("build info collector already registered", "error", err)
		}

		debugServer = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Debug.Host, cfg.Server.Debug.Port),
			Handler:           setupDebugRouter(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return &Server{
		cfg:         cfg,
		logger:      logger,
		appCtx:      appCtx,
		httpServer:  httpServer,
		debugServer: debugServer,
		cancel:      cancel,
	}, nil
}

// newAppContext builds the process-wide providers. Every failure here is a
// configuration problem and fatal.
func newAppContext(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*middlewares.AppContext, error) {
	sessionManager, err := auth.NewSessionManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	upstreamClient, err := upstream.NewClient(cfg.Gateway, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway client: %w", err)
	}

	oauthService, err := auth.NewOAuthService(logger, cfg, upstreamClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth service: %w", err)
	}

	return middlewares.NewAppContext(ctx, cfg, logger, sessionManager, oauthService, upstreamClient), nil
}

func (s *Server) Start() error {
	go func() {
		s.logger.Info("Server Started",
			"port", s.cfg.Server.Port,
			"external_url", s.cfg.Server.ExternalURL,
			"version", version.GetFullVersion())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server failed to start", "error", err)
			s.cancel()
		}
	}()

	if s.debugServer != nil {
		go func() {
			s.logger.Info("Metrics server starting", "address", s.debugServer.Addr)
			if err := s.debugServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("Metrics server failed to start", "error", err)
				s.cancel()
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		s.logger.Info("Shutdown signal received")
	case <-s.appCtx.Done():
		s.logger.Info("Context canceled")
	}

	return s.shutdown()
}

func (s *Server) shutdown() error {
	defer s.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("Shutting Down Server")

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Server forced to shutdown", "error", err)
		return err
	}

	if s.debugServer != nil {
		if err := s.debugServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Debug server forced to shutdown", "error", err)
		}
	}

	s.logger.Info("Server Exited")
	return nil
}
