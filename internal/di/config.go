package di

import (
	"go.uber.org/fx"

	"github.com/aharden/tabhome/internal/config"
)

// ConfigModule provides configuration dependencies
var ConfigModule = fx.Module("config",
	fx.Provide(
		config.Load,
		provideAppConfig,
		provideServerConfig,
		provideStoreConfig,
		provideAuthConfig,
		provideSandboxConfig,
		provideMarketplaceConfig,
	),
)

func provideAppConfig(cfg *config.Config) *config.AppConfig {
	return &cfg.App
}

func provideServerConfig(cfg *config.Config) *config.ServerConfig {
	return &cfg.Server
}

func provideStoreConfig(cfg *config.Config) *config.StoreConfig {
	return &cfg.Store
}

func provideAuthConfig(cfg *config.Config) *config.AuthConfig {
	return &cfg.Auth
}

func provideSandboxConfig(cfg *config.Config) *config.SandboxConfig {
	return &cfg.Sandbox
}

func provideMarketplaceConfig(cfg *config.Config) *config.MarketplaceConfig {
	return &cfg.Marketplace
}
