// Package http contains the gin controllers for the dashboard API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aharden/tabhome/internal/dto/request"
	"github.com/aharden/tabhome/internal/dto/response"
	"github.com/aharden/tabhome/internal/lifecycle"
	"github.com/aharden/tabhome/internal/middleware"
	apperrors "github.com/aharden/tabhome/pkg/errors"
)

// PluginController handles the acting user's plugin lifecycle endpoints.
type PluginController struct {
	controller     *lifecycle.Controller
	authMiddleware *middleware.AuthMiddleware
}

// NewPluginController creates a PluginController.
func NewPluginController(controller *lifecycle.Controller, authMiddleware *middleware.AuthMiddleware) *PluginController {
	return &PluginController{
		controller:     controller,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers the plugin routes
func (c *PluginController) RegisterRoutes(router *gin.RouterGroup) {
	plugins := router.Group("/plugins")
	plugins.Use(c.authMiddleware.Authenticate())
	{
		plugins.GET("", c.List)
		plugins.POST("", c.Install)
		plugins.DELETE("/:id", c.Uninstall)
		plugins.POST("/:id/activate", c.Activate)
		plugins.POST("/:id/deactivate", c.Deactivate)
		plugins.POST("/draft", c.SaveDraft)
		plugins.PUT("/:id", c.Update)
		plugins.POST("/:id/publish", c.Publish)
		plugins.DELETE("/:id/document", c.Delete)
		plugins.GET("/:id/versions", c.Versions)
	}
}

// List returns the user's installed plugins with their active flags,
// re-derived from the store.
func (c *PluginController) List(ctx *gin.Context) {
	userID := middleware.GetUserID(ctx)

	reg := c.controller.Registry()
	if err := reg.Load(ctx.Request.Context(), userID); err != nil {
		// Stale view rather than an error page; the load logged its
		// diagnostic already.
		ctx.JSON(http.StatusOK, response.NewSuccessWithData([]response.PluginResponse{}))
		return
	}

	entries := reg.Snapshot(userID)
	items := make([]response.PluginResponse, len(entries))
	for i, e := range entries {
		items[i] = response.FromEntry(e)
	}
	ctx.JSON(http.StatusOK, response.NewSuccessWithData(items))
}

// Install installs a plugin from uploaded source text.
func (c *PluginController) Install(ctx *gin.Context) {
	var req request.InstallPluginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.NewError[any]("plugin source is required"))
		return
	}

	plugin, err := c.controller.InstallFromSource(ctx.Request.Context(), middleware.GetUserID(ctx), req.Source)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, response.NewSuccess(response.FromPlugin(plugin), "Plugin installed"))
}

// Uninstall removes the plugin from the user's dashboard.
func (c *PluginController) Uninstall(ctx *gin.Context) {
	err := c.controller.Uninstall(ctx.Request.Context(), middleware.GetUserID(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccess[any](nil, "Plugin removed"))
}

// Activate runs the plugin in its sandbox.
func (c *PluginController) Activate(ctx *gin.Context) {
	err := c.controller.Activate(ctx.Request.Context(), middleware.GetUserID(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccess[any](nil, "Plugin activated"))
}

// Deactivate tears the plugin's sandbox down.
func (c *PluginController) Deactivate(ctx *gin.Context) {
	err := c.controller.Deactivate(ctx.Request.Context(), middleware.GetUserID(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccess[any](nil, "Plugin deactivated"))
}

// SaveDraft creates a new authored plugin.
func (c *PluginController) SaveDraft(ctx *gin.Context) {
	var req request.SaveDraftRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.NewError[any]("name, version, and code are required"))
		return
	}

	plugin, err := c.controller.Save(ctx.Request.Context(), middleware.GetUserID(ctx), draftFromRequest(req), "")
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, response.NewSuccess(response.FromPluginWithCode(plugin), "Plugin saved"))
}

// Update saves changes to an existing owned plugin.
func (c *PluginController) Update(ctx *gin.Context) {
	var req request.SaveDraftRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.NewError[any]("name, version, and code are required"))
		return
	}

	plugin, err := c.controller.Save(ctx.Request.Context(), middleware.GetUserID(ctx), draftFromRequest(req), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewSuccess(response.FromPluginWithCode(plugin), "Plugin saved"))
}

// Publish appends a version record and promotes the new code.
func (c *PluginController) Publish(ctx *gin.Context) {
	var req request.PublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.NewError[any]("version and code are required"))
		return
	}

	err := c.controller.Publish(ctx.Request.Context(), middleware.GetUserID(ctx), ctx.Param("id"), req.Version, req.Code)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccess[any](nil, "Version "+req.Version+" published"))
}

// Delete soft-deletes an owned plugin document.
func (c *PluginController) Delete(ctx *gin.Context) {
	err := c.controller.Delete(ctx.Request.Context(), middleware.GetUserID(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccess[any](nil, "Plugin deleted"))
}

// Versions lists the plugin's published version history.
func (c *PluginController) Versions(ctx *gin.Context) {
	versions, err := c.controller.Versions(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccessWithData(response.FromVersions(versions)))
}

func draftFromRequest(req request.SaveDraftRequest) lifecycle.Draft {
	return lifecycle.Draft{
		Name:        req.Name,
		Description: req.Description,
		Version:     req.Version,
		Icon:        req.Icon,
		Code:        req.Code,
		IsPublic:    req.IsPublic,
	}
}

// respondError maps domain errors onto HTTP responses.
func respondError(ctx *gin.Context, err error) {
	ctx.JSON(apperrors.GetStatus(err), response.NewErrorWithCode[any](err.Error(), apperrors.GetCode(err)))
}
