package di

import (
	"go.uber.org/fx"

	httpctrl "github.com/aharden/tabhome/internal/controller/http"
)

// ControllerModule provides HTTP controller dependencies
var ControllerModule = fx.Module("controller",
	fx.Provide(
		httpctrl.NewPluginController,
		httpctrl.NewMarketplaceController,
		httpctrl.NewProfileController,
		httpctrl.NewNotificationController,
	),
)
