package di

import (
	"go.uber.org/fx"

	"github.com/aharden/tabhome/internal/config"
	"github.com/aharden/tabhome/internal/middleware"
)

// MiddlewareModule provides middleware dependencies
var MiddlewareModule = fx.Module("middleware",
	fx.Provide(provideAuthMiddleware),
)

func provideAuthMiddleware(cfg *config.AuthConfig) *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(*cfg)
}
