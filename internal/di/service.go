package di

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/aharden/tabhome/internal/config"
	"github.com/aharden/tabhome/internal/lifecycle"
	"github.com/aharden/tabhome/internal/marketplace"
	"github.com/aharden/tabhome/internal/notify"
	"github.com/aharden/tabhome/internal/observability"
	"github.com/aharden/tabhome/internal/profile"
	"github.com/aharden/tabhome/internal/registry"
	"github.com/aharden/tabhome/internal/sandbox"
	"github.com/aharden/tabhome/internal/store"
)

// ServiceModule provides the domain services
var ServiceModule = fx.Module("service",
	fx.Provide(
		observability.NewMetrics,
		provideSandbox,
		registry.New,
		provideHub,
		provideSink,
		lifecycle.NewController,
		provideMarketplace,
		provideIndexClient,
		profile.NewService,
	),
)

func provideSandbox(lc fx.Lifecycle, cfg *config.SandboxConfig, logger *zap.Logger) *sandbox.Executor {
	executor := sandbox.NewExecutor(*cfg, logger)

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			executor.Shutdown()
			return nil
		},
	})

	return executor
}

func provideHub(lc fx.Lifecycle, logger *zap.Logger) *notify.Hub {
	hub := notify.NewHub(logger)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go hub.Run()
			return nil
		},
		OnStop: func(context.Context) error {
			hub.Close()
			return nil
		},
	})

	return hub
}

// provideSink fans lifecycle events out to connected websocket clients
// and the server log.
func provideSink(hub *notify.Hub, logger *zap.Logger) notify.Sink {
	return notify.MultiSink{hub, notify.NewLogSink(logger)}
}

func provideMarketplace(
	st store.Store,
	controller *lifecycle.Controller,
	cfg *config.MarketplaceConfig,
	logger *zap.Logger,
) *marketplace.Service {
	return marketplace.NewService(st, controller, cfg.PageSize, logger)
}

func provideIndexClient(cfg *config.MarketplaceConfig, controller *lifecycle.Controller) *marketplace.IndexClient {
	return marketplace.NewIndexClient(cfg.IndexURL, cfg.FetchTimeout, controller)
}
