package di

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/aharden/tabhome/internal/config"
	"github.com/aharden/tabhome/internal/store"
)

// StoreModule provides the document store for the configured driver
var StoreModule = fx.Module("store",
	fx.Provide(provideStore),
)

func provideStore(lc fx.Lifecycle, cfg *config.StoreConfig, logger *zap.Logger) (store.Store, error) {
	var (
		st  store.Store
		err error
	)

	switch cfg.Driver {
	case config.DriverMongoDB:
		st, err = store.NewMongoStore(context.Background(), cfg.URI, cfg.Database)
	case config.DriverSQLite:
		st, err = store.NewSQLiteStore(context.Background(), cfg.Path)
	case config.DriverMemory:
		st = store.NewMemoryStore()
	default:
		err = fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Document store ready", zap.String("driver", string(cfg.Driver)))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("Closing document store")
			return st.Close(ctx)
		},
	})

	return st, nil
}
