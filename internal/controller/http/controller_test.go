package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aharden/tabhome/internal/config"
	"github.com/aharden/tabhome/internal/lifecycle"
	"github.com/aharden/tabhome/internal/marketplace"
	"github.com/aharden/tabhome/internal/middleware"
	"github.com/aharden/tabhome/internal/notify"
	"github.com/aharden/tabhome/internal/profile"
	"github.com/aharden/tabhome/internal/registry"
	"github.com/aharden/tabhome/internal/sandbox"
	"github.com/aharden/tabhome/internal/store"
)

const (
	testSecret  = "test-secret"
	clockSource = `/*{
    "name": "Digital Clock",
    "version": "1.0.0",
    "description": "Adds a digital clock to your dashboard",
    "isPublic": true
}*/
ticks = 0
`
)

type testApp struct {
	router *gin.Engine
	store  *store.MemoryStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	st := store.NewMemoryStore()
	reg := registry.New(st, logger)
	sb := sandbox.NewExecutor(config.SandboxConfig{ExecutionTimeout: 2 * time.Second}, logger)
	t.Cleanup(sb.Shutdown)

	controller := lifecycle.NewController(st, reg, sb, notify.NewLogSink(logger), nil, logger)
	mp := marketplace.NewService(st, controller, 50, logger)
	index := marketplace.NewIndexClient("", time.Second, controller)
	prof := profile.NewService(st, logger)
	auth := middleware.NewAuthMiddleware(config.AuthConfig{Secret: testSecret})

	router := gin.New()
	api := router.Group("/api/v1")
	NewPluginController(controller, auth).RegisterRoutes(api)
	NewMarketplaceController(mp, index, auth).RegisterRoutes(api)
	NewProfileController(prof, auth).RegisterRoutes(api)

	return &testApp{router: router, store: st}
}

func (a *testApp) request(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		claims := jwt.MapClaims{"sub": userID, "exp": time.Now().Add(time.Hour).Unix()}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "response not successful: %s", w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
}

func TestPluginEndpoints_RequireAuth(t *testing.T) {
	a := newTestApp(t)

	w := a.request(t, http.MethodGet, "/api/v1/plugins", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.request(t, http.MethodPost, "/api/v1/plugins", "", map[string]string{"source": clockSource})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInstallAndList(t *testing.T) {
	a := newTestApp(t)

	w := a.request(t, http.MethodPost, "/api/v1/plugins", "u1", map[string]string{"source": clockSource})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var installed struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	decodeData(t, w, &installed)
	assert.Equal(t, "Digital Clock", installed.Name)

	w = a.request(t, http.MethodGet, "/api/v1/plugins", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []struct {
		ID     string `json:"id"`
		Active *bool  `json:"active"`
	}
	decodeData(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, installed.ID, list[0].ID)
	require.NotNil(t, list[0].Active)
	assert.False(t, *list[0].Active)
}

func TestInstall_BadManifest(t *testing.T) {
	a := newTestApp(t)

	w := a.request(t, http.MethodPost, "/api/v1/plugins", "u1", map[string]string{"source": "x = 1"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "MANIFEST_MISSING")
}

func TestActivateDeactivateCycle(t *testing.T) {
	a := newTestApp(t)

	w := a.request(t, http.MethodPost, "/api/v1/plugins", "u1", map[string]string{"source": clockSource})
	require.Equal(t, http.StatusCreated, w.Code)
	var installed struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &installed)

	w = a.request(t, http.MethodPost, "/api/v1/plugins/"+installed.ID+"/activate", "u1", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.request(t, http.MethodGet, "/api/v1/plugins", "u1", nil)
	var list []struct {
		Active *bool `json:"active"`
	}
	decodeData(t, w, &list)
	require.Len(t, list, 1)
	assert.True(t, *list[0].Active)

	w = a.request(t, http.MethodPost, "/api/v1/plugins/"+installed.ID+"/deactivate", "u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDraftPublishVersionsFlow(t *testing.T) {
	a := newTestApp(t)

	draft := map[string]any{
		"name":    "Notes",
		"version": "0.1.0",
		"code":    `/*{"name":"Notes","version":"0.1.0"}*/ notes = {}`,
	}
	w := a.request(t, http.MethodPost, "/api/v1/plugins/draft", "u1", draft)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var saved struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	}
	decodeData(t, w, &saved)
	assert.NotEmpty(t, saved.Code, "owner view includes code")

	w = a.request(t, http.MethodPost, "/api/v1/plugins/"+saved.ID+"/publish", "u1",
		map[string]string{"version": "0.2.0", "code": "notes = {v = 2}"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.request(t, http.MethodGet, "/api/v1/plugins/"+saved.ID+"/versions", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var versions []struct {
		Version string `json:"version"`
		Code    string `json:"code"`
	}
	decodeData(t, w, &versions)
	require.Len(t, versions, 1)
	assert.Equal(t, "0.2.0", versions[0].Version)
	assert.Empty(t, versions[0].Code, "version listing omits code")
}

func TestPublish_NotOwner(t *testing.T) {
	a := newTestApp(t)

	w := a.request(t, http.MethodPost, "/api/v1/plugins", "owner", map[string]string{"source": clockSource})
	require.Equal(t, http.StatusCreated, w.Code)
	var installed struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &installed)

	w = a.request(t, http.MethodPost, "/api/v1/plugins/"+installed.ID+"/publish", "intruder",
		map[string]string{"version": "9.9.9", "code": "evil"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")
}

func TestMarketplaceListAndSearch(t *testing.T) {
	a := newTestApp(t)

	// Publish one public plugin via install from source.
	w := a.request(t, http.MethodPost, "/api/v1/plugins", "author", map[string]string{"source": clockSource})
	require.Equal(t, http.StatusCreated, w.Code)

	// Browsing needs no token.
	w = a.request(t, http.MethodGet, "/api/v1/marketplace?filter=popular", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []struct {
		Name string `json:"name"`
		Code string `json:"code"`
	}
	decodeData(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Digital Clock", list[0].Name)
	assert.Empty(t, list[0].Code, "catalog listing omits code")

	w = a.request(t, http.MethodGet, "/api/v1/marketplace/search?q=clock", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &list)
	assert.Len(t, list, 1)

	w = a.request(t, http.MethodGet, "/api/v1/marketplace/search?q=zebra", "", nil)
	decodeData(t, w, &list)
	assert.Empty(t, list)
}

func TestMarketplaceInstall(t *testing.T) {
	a := newTestApp(t)

	w := a.request(t, http.MethodPost, "/api/v1/plugins", "author", map[string]string{"source": clockSource})
	require.Equal(t, http.StatusCreated, w.Code)
	var installed struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &installed)

	// Install requires a user.
	w = a.request(t, http.MethodPost, "/api/v1/marketplace/"+installed.ID+"/install", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.request(t, http.MethodPost, "/api/v1/marketplace/"+installed.ID+"/install", "u2", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.request(t, http.MethodGet, "/api/v1/plugins", "u2", nil)
	var list []struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, installed.ID, list[0].ID)
}

func TestMarketplaceInstall_UnknownPlugin(t *testing.T) {
	a := newTestApp(t)

	w := a.request(t, http.MethodPost, "/api/v1/marketplace/ghost/install", "u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "PLUGIN_NOT_FOUND")
}

func TestPreferencesRoundTrip(t *testing.T) {
	a := newTestApp(t)

	w := a.request(t, http.MethodPut, "/api/v1/me/preferences", "u1",
		map[string]any{"darkMode": true, "savedLinks": []string{"https://example.com"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.request(t, http.MethodGet, "/api/v1/me/preferences", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var prefs struct {
		DarkMode   bool     `json:"darkMode"`
		SavedLinks []string `json:"savedLinks"`
	}
	decodeData(t, w, &prefs)
	assert.True(t, prefs.DarkMode)
	assert.Equal(t, []string{"https://example.com"}, prefs.SavedLinks)
}

func TestDeleteDocument_SoftDelete(t *testing.T) {
	a := newTestApp(t)

	w := a.request(t, http.MethodPost, "/api/v1/plugins", "u1", map[string]string{"source": clockSource})
	require.Equal(t, http.StatusCreated, w.Code)
	var installed struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &installed)

	w = a.request(t, http.MethodDelete, "/api/v1/plugins/"+installed.ID+"/document", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Gone from the marketplace.
	w = a.request(t, http.MethodGet, "/api/v1/marketplace", "", nil)
	var list []struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &list)
	assert.Empty(t, list)

	// Document itself survives with the flag set.
	doc, err := a.store.GetDocument(context.Background(), store.CollectionPlugins, installed.ID)
	require.NoError(t, err)
	assert.True(t, doc.Bool("deleted"))
}
