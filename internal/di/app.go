package di

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/aharden/tabhome/internal/config"
)

// AppModule aggregates all application modules
var AppModule = fx.Options(
	ConfigModule,
	LoggerModule,
	StoreModule,
	ServiceModule,
	MiddlewareModule,
	ControllerModule,
	HTTPServerModule,
)

// PrintBanner prints the application startup banner
func PrintBanner(cfg *config.Config, logger *zap.Logger) {
	logger.Info("===========================================")
	logger.Info("   TabHome - Dashboard Plugin Platform     ")
	logger.Info("===========================================")
	logger.Info("Application Info",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)
	logger.Info("Store Config",
		zap.String("driver", string(cfg.Store.Driver)),
		zap.Bool("local_mode", cfg.Store.IsLocalMode()),
	)
	logger.Info("===========================================")
}
