// Command sweep-lambda runs one outreach sweep per scheduled EventBridge invocation.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
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

	lambda.Start(func(ctx context.Context, evt events.CloudWatchEvent) (sweep.Report, error) {
		return handle(ctx, app.Runner, logger, evt)
	})
}

// handle runs one sweep bounded by the invocation deadline.
func handle(ctx context.Context, s sweeper, logger *logging.Logger, evt events.CloudWatchEvent) (sweep.Report, error) {
	logger.Info("scheduled sweep invoked", "event_id", evt.ID, "source", evt.Source, "time", evt.Time)
	report, err := s.Run(ctx)
	if err != nil {
		return report, fmt.Errorf("sweep: %w", err)
	}
	logger.Info("scheduled sweep finished",
		"considered", report.Considered,
		"sent", report.Sent,
		"failed", report.Failed,
		"skipped", report.Skipped,
	)
	return report, nil
}
