package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/radio-ops-platform/cmd/mainconfig"
	"github.com/wolfman30/radio-ops-platform/internal/api/router"
	"github.com/wolfman30/radio-ops-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/radio-ops-platform/internal/config"
	"github.com/wolfman30/radio-ops-platform/internal/http/handlers"
	"github.com/wolfman30/radio-ops-platform/internal/leads"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting radio outreach API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	metricsHandler, registry := setupMetrics()
	app, err := bootstrap.BuildApp(ctx, cfg, &awsCfg, registry, logger)
	if err != nil {
		logger.Error("failed to build outreach engine", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           buildHandler(cfg, app, metricsHandler, registry, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Turns wait on text generation and delivery.
		WriteTimeout: cfg.GenerationTimeout + cfg.DeliveryTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics returns a private registry with Go runtime collectors and its /metrics handler.
func setupMetrics() (http.Handler, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), registry
}

func buildHandler(cfg *appconfig.Config, app *bootstrap.App, metricsHandler http.Handler, gatherer prometheus.Gatherer, logger *logging.Logger) http.Handler {
	return router.New(&router.Config{
		Logger:       logger,
		LeadsHandler: leads.NewHandler(app.Storage.Leads, app.Personas, logger),
		OutreachHandler: handlers.NewOutreachHandler(handlers.OutreachConfig{
			Agents:   app.Agents,
			Audit:    app.Audit,
			Gatherer: gatherer,
			Logger:   logger,
		}),
		MetricsHandler:     metricsHandler,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		ServiceToken:       cfg.ServiceToken,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AdminRateLimit:     cfg.AdminRateLimit,
		AdminRateBurst:     cfg.AdminRateBurst,
	})
}
