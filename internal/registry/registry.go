// Package registry holds the per-session runtime view of each user's
// installed plugins. Views are keyed by user id, mirror the document
// store, and are rebuilt wholesale on load, never persisted themselves.
package registry

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/aharden/tabhome/internal/domain/entity"
	"github.com/aharden/tabhome/internal/store"
)

// Entry is one runtime record: a plugin snapshot plus its active flag.
type Entry struct {
	Plugin *entity.Plugin
	Active bool
}

// Renderer receives a user's full projection after every load. The view
// is always recomputed from scratch, never incrementally patched.
type Renderer interface {
	Render(userID string, entries []*Entry)
}

// view is one user's session state: plugin id to entry, in install order.
type view struct {
	entries map[string]*Entry
	order   []string
}

func newView() *view {
	return &view{entries: make(map[string]*Entry)}
}

// Registry maps user id to that user's runtime view. Sessions never see
// each other's entries; the lifecycle controller is the only writer.
type Registry struct {
	mu    sync.RWMutex
	views map[string]*view

	store    store.Store
	logger   *zap.Logger
	renderer Renderer
}

// New creates an empty Registry over the given store.
func New(st store.Store, logger *zap.Logger) *Registry {
	return &Registry{
		views:  make(map[string]*view),
		store:  st,
		logger: logger,
	}
}

// SetRenderer attaches the view projection collaborator.
func (r *Registry) SetRenderer(renderer Renderer) {
	r.mu.Lock()
	r.renderer = renderer
	r.mu.Unlock()
}

// Load atomically replaces the user's view from their installedPlugins
// list. A dangling reference (fetch failure or missing document) is
// logged and skipped; the id itself stays untouched in installedPlugins,
// removal is a corrective lifecycle action. A failure to fetch the user
// document leaves the current view unchanged.
func (r *Registry) Load(ctx context.Context, userID string) error {
	userDoc, err := r.store.GetDocument(ctx, store.CollectionUsers, userID)
	if err == store.ErrNotFound {
		r.replace(userID, newView())
		return nil
	}
	if err != nil {
		r.logger.Error("registry load failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return err
	}

	user := entity.UserFromDocument(userDoc)

	v := &view{
		entries: make(map[string]*Entry, len(user.InstalledPlugins)),
		order:   make([]string, 0, len(user.InstalledPlugins)),
	}

	for _, id := range user.InstalledPlugins {
		doc, err := r.store.GetDocument(ctx, store.CollectionPlugins, id)
		if err != nil {
			// Dangling reference: drop from the view, keep the id in
			// installedPlugins, carry on with the remaining plugins.
			r.logger.Warn("skipping unresolvable plugin reference",
				zap.String("user_id", userID),
				zap.String("plugin_id", id),
				zap.Error(err),
			)
			continue
		}
		v.entries[id] = &Entry{
			Plugin: entity.PluginFromDocument(doc),
			Active: user.IsActive(id),
		}
		v.order = append(v.order, id)
	}

	r.replace(userID, v)
	return nil
}

func (r *Registry) replace(userID string, v *view) {
	r.mu.Lock()
	r.views[userID] = v
	renderer := r.renderer
	snapshot := v.snapshot()
	r.mu.Unlock()

	if renderer != nil {
		renderer.Render(userID, snapshot)
	}
}

// Get returns the user's entry for a plugin id.
func (r *Registry) Get(userID, id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.views[userID]
	if !ok {
		return nil, false
	}
	e, ok := v.entries[id]
	return e, ok
}

// Has reports whether the plugin id is in the user's view.
func (r *Registry) Has(userID, id string) bool {
	_, ok := r.Get(userID, id)
	return ok
}

// SetActive flips the active flag on an existing entry.
func (r *Registry) SetActive(userID, id string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.views[userID]; ok {
		if e, ok := v.entries[id]; ok {
			e.Active = active
		}
	}
}

// Discard removes one entry from the user's view without touching the
// store.
func (r *Registry) Discard(userID, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[userID]
	if !ok {
		return
	}
	if _, ok := v.entries[id]; !ok {
		return
	}
	delete(v.entries, id)
	for i, oid := range v.order {
		if oid == id {
			v.order = append(v.order[:i], v.order[i+1:]...)
			break
		}
	}
}

// Clear drops the user's view, for session end and auth transitions.
func (r *Registry) Clear(userID string) {
	r.mu.Lock()
	delete(r.views, userID)
	r.mu.Unlock()
}

// Len returns the number of entries in the user's view.
func (r *Registry) Len(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.views[userID]; ok {
		return len(v.entries)
	}
	return 0
}

// Snapshot returns the user's entries in install order.
func (r *Registry) Snapshot(userID string) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.views[userID]; ok {
		return v.snapshot()
	}
	return nil
}

func (v *view) snapshot() []*Entry {
	out := make([]*Entry, 0, len(v.order))
	for _, id := range v.order {
		if e, ok := v.entries[id]; ok {
			out = append(out, e)
		}
	}
	return out
}
