// Package sandbox executes untrusted plugin code in isolation.
//
// Each activation gets its own embedded Lua interpreter with a
// restricted library surface: no file system, no process control, no
// module loading, and a bounded execution time. Contexts are keyed by
// user and plugin, so two users running the same plugin hold separate
// interpreters. This deliberately upgrades the original "separate
// script context" boundary to an engine-level one; plugins share
// nothing with the host and nothing with each other.
package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/aharden/tabhome/internal/config"
	"github.com/aharden/tabhome/internal/domain/entity"
	"github.com/aharden/tabhome/internal/manifest"
	apperrors "github.com/aharden/tabhome/pkg/errors"
)

// Context is one live execution environment hosting a single plugin for
// a single user session.
type Context struct {
	UserID      string
	PluginID    string
	ActivatedAt time.Time

	state *lua.LState
}

type contextKey struct {
	userID   string
	pluginID string
}

// Executor owns the mapping from (user, plugin) to live execution
// context. The context table is private; only the lifecycle controller
// drives it.
type Executor struct {
	mu       sync.Mutex
	contexts map[contextKey]*Context

	cfg    config.SandboxConfig
	logger *zap.Logger
}

// NewExecutor creates an Executor with the given limits.
func NewExecutor(cfg config.SandboxConfig, logger *zap.Logger) *Executor {
	return &Executor{
		contexts: make(map[contextKey]*Context),
		cfg:      cfg,
		logger:   logger,
	}
}

// Activate creates a fresh isolated context for the user's plugin and
// runs its code inside it, with the manifest block stripped first.
// Re-activating an already-active plugin is a no-op for that user only.
// A failing plugin never leaves a half-created context behind.
func (e *Executor) Activate(ctx context.Context, userID string, plugin *entity.Plugin) error {
	key := contextKey{userID: userID, pluginID: plugin.ID}

	e.mu.Lock()
	if _, active := e.contexts[key]; active {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	L := e.newState(userID, plugin.ID)

	code := manifest.Strip(plugin.Code)

	runCtx := ctx
	if e.cfg.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.ExecutionTimeout)
		defer cancel()
	}
	L.SetContext(runCtx)

	if err := e.run(L, code); err != nil {
		L.Close()
		e.logger.Warn("plugin activation failed",
			zap.String("user_id", userID),
			zap.String("plugin_id", plugin.ID),
			zap.Error(err),
		)
		return apperrors.ErrPluginExecution.WithError(err)
	}

	// Detach the activation context; the state outlives this call.
	L.SetContext(context.Background())

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, active := e.contexts[key]; active {
		// Lost a concurrent activation race; keep the first context.
		L.Close()
		return nil
	}
	e.contexts[key] = &Context{
		UserID:      userID,
		PluginID:    plugin.ID,
		ActivatedAt: time.Now(),
		state:       L,
	}

	e.logger.Info("plugin activated",
		zap.String("user_id", userID),
		zap.String("plugin_id", plugin.ID),
		zap.String("version", plugin.Version),
	)
	return nil
}

// Deactivate tears down the user's execution context for the plugin id.
// Other users' contexts for the same plugin are untouched. Deactivating
// a non-active id is a no-op.
func (e *Executor) Deactivate(userID, pluginID string) {
	key := contextKey{userID: userID, pluginID: pluginID}

	e.mu.Lock()
	c, active := e.contexts[key]
	if active {
		delete(e.contexts, key)
	}
	e.mu.Unlock()

	if !active {
		return
	}
	c.state.Close()
	e.logger.Info("plugin deactivated",
		zap.String("user_id", userID),
		zap.String("plugin_id", pluginID),
	)
}

// IsActive reports whether the user has a live context for the plugin.
func (e *Executor) IsActive(userID, pluginID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, active := e.contexts[contextKey{userID: userID, pluginID: pluginID}]
	return active
}

// ActiveIDs returns the plugin ids with a live context for the user.
func (e *Executor) ActiveIDs(userID string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.contexts))
	for key := range e.contexts {
		if key.userID == userID {
			ids = append(ids, key.pluginID)
		}
	}
	return ids
}

// ActiveCount returns the number of live contexts across all users.
func (e *Executor) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.contexts)
}

// Shutdown tears down every live context.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	contexts := e.contexts
	e.contexts = make(map[contextKey]*Context)
	e.mu.Unlock()

	for _, c := range contexts {
		c.state.Close()
	}
	if len(contexts) > 0 {
		e.logger.Info("sandbox shutdown complete", zap.Int("contexts", len(contexts)))
	}
}

// newState builds a Lua state with only the safe standard libraries and
// the loader functions removed.
func (e *Executor) newState(userID, pluginID string) *lua.LState {
	opts := lua.Options{
		SkipOpenLibs: true,
	}
	if e.cfg.CallStackSize > 0 {
		opts.CallStackSize = e.cfg.CallStackSize
	}
	L := lua.NewState(opts)

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	// io, os, debug, package stay closed: plugins get no file system,
	// no process control, no module loading.

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}

	// print goes to the host log instead of stdout
	logger := e.logger
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		logger.Debug("plugin output",
			zap.String("user_id", userID),
			zap.String("plugin_id", pluginID),
			zap.Strings("values", parts),
		)
		return 0
	}))

	return L
}

// run executes the code body with panic containment. gopher-lua reports
// compile and runtime errors as error returns, but a misbehaving Go
// binding could still panic; neither may crash the host.
func (e *Executor) run(L *lua.LState, code string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = rerr
				return
			}
			err = fmt.Errorf("plugin panic: %v", r)
		}
	}()
	return L.DoString(code)
}
