package egress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gatekeeper/internal/version"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 30 * time.Second

// Run serves the gateway (and the metrics listener when configured) until ctx is done.
func (g *Gateway) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", g.cfg.Port),
		Handler:           g.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var metricsServer *http.Server
	if g.cfg.MetricsAddr != "" {
		if err := prometheus.Register(versioncollector.NewCollector(version.Program + "_egress")); err != nil {
			g.logger.Debug("build info collector already registered", "error", err)
		}
		metricsServer = &http.Server{
			Addr:              g.cfg.MetricsAddr,
			Handler:           metricsRouter(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	errCh := make(chan error, 2)

	go func() {
		g.logger.Info("Egress gateway listening", "port", g.cfg.Port, "upstream", g.upstream)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("gateway server: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			g.logger.Info("Metrics server starting", "address", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		g.logger.Info("Shutting down egress gateway")
	case runErr = <-errCh:
		g.logger.Error("Egress gateway failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			g.logger.Error("Metrics server forced to shutdown", "error", err)
		}
	}

	return runErr
}

func metricsRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	return r
}
