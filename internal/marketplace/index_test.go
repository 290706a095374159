package marketplace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aharden/tabhome/internal/config"
	"github.com/aharden/tabhome/internal/lifecycle"
	"github.com/aharden/tabhome/internal/registry"
	"github.com/aharden/tabhome/internal/sandbox"
	"github.com/aharden/tabhome/internal/store"
	apperrors "github.com/aharden/tabhome/pkg/errors"
)

const indexClockSource = `/*{
    "name": "Digital Clock",
    "version": "1.0.0",
    "description": "Adds a digital clock to your dashboard"
}*/
ticks = 0
`

func newIndexFixture(t *testing.T) (*IndexClient, *store.MemoryStore) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/index.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"id": "clock", "name": "Digital Clock", "version": "1.0.0"}]`))
	})
	mux.HandleFunc("/clock.lua", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(indexClockSource))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	logger := zap.NewNop()
	st := store.NewMemoryStore()
	reg := registry.New(st, logger)
	sb := sandbox.NewExecutor(config.SandboxConfig{ExecutionTimeout: time.Second}, logger)
	t.Cleanup(sb.Shutdown)
	controller := lifecycle.NewController(st, reg, sb, nopSink{}, nil, logger)

	return NewIndexClient(server.URL, 2*time.Second, controller), st
}

func TestIndexClient_Enabled(t *testing.T) {
	assert.False(t, NewIndexClient("", time.Second, nil).Enabled())
	assert.True(t, NewIndexClient("http://localhost:9", time.Second, nil).Enabled())
}

func TestIndexClient_Fetch(t *testing.T) {
	c, _ := newIndexFixture(t)

	entries, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "clock", entries[0].ID)
	assert.Equal(t, "Digital Clock", entries[0].Name)
}

func TestIndexClient_Install_KeepsIndexID(t *testing.T) {
	c, st := newIndexFixture(t)
	ctx := context.Background()

	p, err := c.Install(ctx, "u1", "clock")
	require.NoError(t, err)
	assert.Equal(t, "clock", p.ID)
	assert.Equal(t, "Digital Clock", p.Name)

	doc, err := st.GetDocument(ctx, store.CollectionUsers, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"clock"}, doc.StringSlice("installedPlugins"))

	// Re-install resolves to the same record, still installed once.
	_, err = c.Install(ctx, "u1", "clock")
	require.NoError(t, err)
	doc, err = st.GetDocument(ctx, store.CollectionUsers, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"clock"}, doc.StringSlice("installedPlugins"))
}

func TestIndexClient_Install_UnknownID(t *testing.T) {
	c, _ := newIndexFixture(t)

	_, err := c.Install(context.Background(), "u1", "missing")
	assert.True(t, apperrors.Is(err, apperrors.ErrPluginNotFound))
}
