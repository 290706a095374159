package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aharden/tabhome/internal/dto/response"
	"github.com/aharden/tabhome/internal/marketplace"
	"github.com/aharden/tabhome/internal/middleware"
)

// MarketplaceController handles the public catalog endpoints.
type MarketplaceController struct {
	service        *marketplace.Service
	index          *marketplace.IndexClient
	authMiddleware *middleware.AuthMiddleware
}

// NewMarketplaceController creates a MarketplaceController.
func NewMarketplaceController(
	service *marketplace.Service,
	index *marketplace.IndexClient,
	authMiddleware *middleware.AuthMiddleware,
) *MarketplaceController {
	return &MarketplaceController{
		service:        service,
		index:          index,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers the marketplace routes
func (c *MarketplaceController) RegisterRoutes(router *gin.RouterGroup) {
	mp := router.Group("/marketplace")
	{
		// Browsing is public; installing needs a user.
		mp.GET("", c.List)
		mp.GET("/search", c.Search)
		mp.POST("/:id/install", c.authMiddleware.Authenticate(), c.Install)

		if c.index.Enabled() {
			mp.GET("/index", c.ListIndex)
			mp.POST("/index/:id/install", c.authMiddleware.Authenticate(), c.InstallFromIndex)
		}
	}
}

// List returns the catalog, optionally ordered by ?filter=popular|recent.
func (c *MarketplaceController) List(ctx *gin.Context) {
	filter := marketplace.ParseFilter(ctx.Query("filter"))

	plugins, err := c.service.List(ctx.Request.Context(), filter)
	if err != nil {
		// Read failure degrades to an empty catalog.
		ctx.JSON(http.StatusOK, response.NewSuccessWithData([]response.PluginResponse{}))
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccessWithData(response.FromPlugins(plugins)))
}

// Search narrows the last listed catalog by ?q=term.
func (c *MarketplaceController) Search(ctx *gin.Context) {
	results := c.service.Search(ctx.Query("q"))
	ctx.JSON(http.StatusOK, response.NewSuccessWithData(response.FromPlugins(results)))
}

// Install installs a catalog plugin for the authenticated user.
func (c *MarketplaceController) Install(ctx *gin.Context) {
	err := c.service.Install(ctx.Request.Context(), middleware.GetUserID(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccess[any](nil, "Plugin installed"))
}

// ListIndex returns the static marketplace index listing.
func (c *MarketplaceController) ListIndex(ctx *gin.Context) {
	entries, err := c.index.Fetch(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusOK, response.NewSuccessWithData([]marketplace.IndexEntry{}))
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccessWithData(entries))
}

// InstallFromIndex installs a plugin payload fetched from the static
// index, keeping the index's id.
func (c *MarketplaceController) InstallFromIndex(ctx *gin.Context) {
	plugin, err := c.index.Install(ctx.Request.Context(), middleware.GetUserID(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, response.NewSuccess(response.FromPlugin(plugin), "Plugin installed"))
}
