package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aharden/tabhome/internal/domain/entity"
	"github.com/aharden/tabhome/internal/dto/request"
	"github.com/aharden/tabhome/internal/dto/response"
	"github.com/aharden/tabhome/internal/middleware"
	"github.com/aharden/tabhome/internal/profile"
)

// ProfileController handles the acting user's profile and preferences.
type ProfileController struct {
	service        *profile.Service
	authMiddleware *middleware.AuthMiddleware
}

// NewProfileController creates a ProfileController.
func NewProfileController(service *profile.Service, authMiddleware *middleware.AuthMiddleware) *ProfileController {
	return &ProfileController{
		service:        service,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers the profile routes
func (c *ProfileController) RegisterRoutes(router *gin.RouterGroup) {
	me := router.Group("/me")
	me.Use(c.authMiddleware.Authenticate())
	{
		me.GET("", c.Get)
		me.POST("/login", c.Login)
		me.GET("/preferences", c.Preferences)
		me.PUT("/preferences", c.UpdatePreferences)
		me.GET("/authored", c.Authored)
	}
}

// Get returns the user's profile document.
func (c *ProfileController) Get(ctx *gin.Context) {
	user, err := c.service.Get(ctx.Request.Context(), middleware.GetUserID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccessWithData(user))
}

// Login upserts the profile from the verified token identity and stamps
// lastLogin.
func (c *ProfileController) Login(ctx *gin.Context) {
	ident := middleware.GetIdentity(ctx)
	err := c.service.EnsureUser(ctx.Request.Context(), middleware.GetUserID(ctx), profile.Identity{
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
		PhotoURL:    ident.PhotoURL,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccess[any](nil, "Welcome back"))
}

// Preferences returns the user's dashboard preferences.
func (c *ProfileController) Preferences(ctx *gin.Context) {
	prefs, err := c.service.Preferences(ctx.Request.Context(), middleware.GetUserID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccessWithData(prefs))
}

// UpdatePreferences replaces the user's dashboard preferences.
func (c *ProfileController) UpdatePreferences(ctx *gin.Context) {
	var req request.PreferencesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.NewError[any]("invalid preferences payload"))
		return
	}

	err := c.service.UpdatePreferences(ctx.Request.Context(), middleware.GetUserID(ctx), entity.Preferences{
		DarkMode:   req.DarkMode,
		SavedLinks: req.SavedLinks,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccess[any](nil, "Preferences saved"))
}

// Authored lists the plugins the user has created, code included.
func (c *ProfileController) Authored(ctx *gin.Context) {
	plugins, err := c.service.AuthoredPlugins(ctx.Request.Context(), middleware.GetUserID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	items := make([]response.PluginResponse, len(plugins))
	for i, p := range plugins {
		items[i] = response.FromPluginWithCode(p)
	}
	ctx.JSON(http.StatusOK, response.NewSuccessWithData(items))
}
