// Command outreach-sweep runs the daily automation pass, either once or on a cron schedule.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/radio-ops-platform/cmd/mainconfig"
	"github.com/wolfman30/radio-ops-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/radio-ops-platform/internal/config"
	"github.com/wolfman30/radio-ops-platform/internal/sweep"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

type sweeper interface {
	Run(ctx context.Context) (sweep.Report, error)
}

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	timeout := flag.Duration("timeout", 30*time.Minute, "maximum duration of one sweep")
	flag.Parse()

	// .env is optional outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	app, err := bootstrap.BuildApp(ctx, cfg, &awsCfg, prometheus.NewRegistry(), logger)
	if err != nil {
		logger.Error("failed to build outreach engine", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if *once {
		if err := runOnce(ctx, app.Runner, *timeout, os.Stdout); err != nil {
			logger.Error("outreach sweep failed", "error", err)
			app.Close()
			os.Exit(1)
		}
		return
	}

	scheduler, err := sweep.NewScheduler(app.Runner, cfg.SweepSchedule, *timeout, logger)
	if err != nil {
		logger.Error("invalid sweep schedule", "schedule", cfg.SweepSchedule, "error", err)
		app.Close()
		os.Exit(1)
	}
	scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("stopping sweep scheduler; waiting for a running sweep")
	<-scheduler.Stop().Done()
}

// runOnce performs one sweep and writes its report as JSON.
func runOnce(ctx context.Context, s sweeper, timeout time.Duration, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report, err := s.Run(ctx)
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(report); encErr != nil && err == nil {
		err = encErr
	}
	return err
}
