package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"

	appconfig "github.com/wolfman30/radio-ops-platform/internal/config"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

// App is everything a binary needs to serve outreach turns.
type App struct {
	*Outreach
	Storage *Storage

	closeLocker func()
}

// Close releases the locker client and database handles.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.closeLocker != nil {
		a.closeLocker()
	}
	a.Storage.Close()
}

// BuildApp assembles storage, locks, text generation, delivery and the outreach engine.
func BuildApp(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, reg prometheus.Registerer, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	storage, err := BuildStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	locker, closeLocker, err := BuildLocker(ctx, cfg, logger)
	if err != nil {
		storage.Close()
		return nil, err
	}
	app := &App{Storage: storage, closeLocker: closeLocker}

	gateway, err := BuildLLMGateway(ctx, cfg, awsCfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	deliveryGateway, err := BuildDeliveryGateway(cfg, awsCfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Outreach, err = BuildOutreach(cfg, OutreachDeps{
		Storage:  storage,
		Locker:   locker,
		Gateway:  gateway,
		Delivery: deliveryGateway,
		Registry: reg,
		Logger:   logger,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("bootstrap: outreach: %w", err)
	}
	return app, nil
}
