package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aharden/tabhome/internal/middleware"
	"github.com/aharden/tabhome/internal/notify"
)

// NotificationController upgrades clients onto the notification hub.
type NotificationController struct {
	hub            *notify.Hub
	authMiddleware *middleware.AuthMiddleware
	upgrader       websocket.Upgrader
	logger         *zap.Logger
}

// NewNotificationController creates a NotificationController.
func NewNotificationController(hub *notify.Hub, authMiddleware *middleware.AuthMiddleware, logger *zap.Logger) *NotificationController {
	return &NotificationController{
		hub:            hub,
		authMiddleware: authMiddleware,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser origin checks are handled by the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// RegisterRoutes registers the websocket route
func (c *NotificationController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", c.authMiddleware.Authenticate(), c.Connect)
}

// Connect upgrades the request and subscribes the user to lifecycle
// events.
func (c *NotificationController) Connect(ctx *gin.Context) {
	userID := middleware.GetUserID(ctx)

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Warn("websocket upgrade failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}

	c.hub.Register(conn, userID)
}
