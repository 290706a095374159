// Package lifecycle orchestrates plugin install, uninstall, activation,
// authoring, publishing, and deletion, keeping the registry, document
// store, and sandbox executor consistent.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aharden/tabhome/internal/domain/entity"
	"github.com/aharden/tabhome/internal/manifest"
	"github.com/aharden/tabhome/internal/notify"
	"github.com/aharden/tabhome/internal/observability"
	"github.com/aharden/tabhome/internal/registry"
	"github.com/aharden/tabhome/internal/sandbox"
	"github.com/aharden/tabhome/internal/store"
	apperrors "github.com/aharden/tabhome/pkg/errors"
)

// Draft carries the authoring fields for Save.
type Draft struct {
	Name        string
	Description string
	Version     string
	Icon        string
	Code        string
	IsPublic    bool
}

// Controller is the plugin lifecycle state machine. One instance per
// application; it is explicitly constructed and passed to collaborators,
// never a package-level singleton.
type Controller struct {
	store    store.Store
	registry *registry.Registry
	sandbox  *sandbox.Executor
	sink     notify.Sink
	metrics  *observability.Metrics
	logger   *zap.Logger

	locks *keyedMutex
}

// NewController wires the controller to its collaborators.
func NewController(
	st store.Store,
	reg *registry.Registry,
	sb *sandbox.Executor,
	sink notify.Sink,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		store:    st,
		registry: reg,
		sandbox:  sb,
		sink:     sink,
		metrics:  metrics,
		logger:   logger,
		locks:    newKeyedMutex(),
	}
}

// Registry exposes the runtime view for the render path.
func (c *Controller) Registry() *registry.Registry {
	return c.registry
}

// finish ends every mutating operation: exactly one notification, then a
// registry reload so the visible projection is re-derived, never patched.
func (c *Controller) finish(ctx context.Context, userID, op, pluginID string, err error, successMsg string) {
	c.metrics.ObserveLifecycleOp(op, err)
	if err != nil {
		c.sink.Notify(userID, notify.Failure(pluginID, humanMessage(err)))
	} else {
		c.sink.Notify(userID, notify.Success("plugin."+op, pluginID, successMsg))
	}

	if loadErr := c.registry.Load(ctx, userID); loadErr != nil {
		// Read path failure: logged diagnostic only, the next navigation
		// retries the load.
		c.logger.Error("registry reload failed",
			zap.String("user_id", userID),
			zap.String("operation", op),
			zap.Error(loadErr),
		)
	}
	c.metrics.SetActiveSandboxes(c.sandbox.ActiveCount())
}

// InstallFromSource installs a plugin from uploaded source text. The
// manifest must parse; the created plugin is private to its uploader
// until published.
func (c *Controller) InstallFromSource(ctx context.Context, userID, source string) (*entity.Plugin, error) {
	return c.installSource(ctx, userID, source, "")
}

// InstallSourceAs installs source text under a caller-chosen id. The
// static marketplace index uses this so the local record keeps the
// index's plugin id.
func (c *Controller) InstallSourceAs(ctx context.Context, userID, pluginID, source string) (*entity.Plugin, error) {
	return c.installSource(ctx, userID, source, pluginID)
}

func (c *Controller) installSource(ctx context.Context, userID, source, fixedID string) (plugin *entity.Plugin, err error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	defer func() {
		id := fixedID
		if plugin != nil {
			id = plugin.ID
		}
		c.finish(ctx, userID, "installed", id, err, "Plugin installed")
	}()

	m, err := manifest.Parse(source)
	if err != nil {
		return nil, err
	}

	id := fixedID
	if id == "" {
		id = uuid.New().String()
	}

	now := entity.Now()
	plugin = &entity.Plugin{
		ID:          id,
		Name:        m.Name,
		Description: m.Description,
		Version:     m.Version,
		Icon:        m.Icon,
		Author:      userID,
		Code:        source,
		IsPublic:    m.IsPublic,
		CreatedAt:   now,
		LastUpdated: now,
	}

	unlock := c.locks.lock(plugin.ID)
	defer unlock()

	// Re-installing under a fixed id must not reset the existing
	// record's counters or reassign its author.
	if fixedID != "" {
		doc, getErr := c.store.GetDocument(ctx, store.CollectionPlugins, fixedID)
		if getErr == nil {
			existing := entity.PluginFromDocument(doc)
			plugin.Author = existing.Author
			plugin.CreatedAt = existing.CreatedAt
			plugin.Downloads = existing.Downloads
		} else if getErr != store.ErrNotFound {
			err = apperrors.ErrPersistence.WithError(getErr)
			return nil, err
		}
	}

	if err = c.store.SetDocument(ctx, store.CollectionPlugins, plugin.ID, plugin.ToDocument(), false); err != nil {
		err = apperrors.ErrPersistence.WithError(err)
		return nil, err
	}

	if _, err = c.appendInstalled(ctx, userID, plugin.ID); err != nil {
		return nil, err
	}

	return plugin, nil
}

// InstallByID installs an existing plugin for the user. Idempotent on
// installedPlugins; the download counter increments only on the user's
// first install of that plugin.
func (c *Controller) InstallByID(ctx context.Context, userID, pluginID string) (err error) {
	if userID == "" {
		return apperrors.ErrUnauthenticated
	}
	defer func() { c.finish(ctx, userID, "installed", pluginID, err, "Plugin installed") }()

	unlock := c.locks.lock(pluginID)
	defer unlock()

	doc, err := c.store.GetDocument(ctx, store.CollectionPlugins, pluginID)
	if err == store.ErrNotFound {
		return apperrors.ErrPluginNotFound
	}
	if err != nil {
		return apperrors.ErrPersistence.WithError(err)
	}

	plugin := entity.PluginFromDocument(doc)
	if plugin.Deleted {
		return apperrors.ErrPluginNotFound
	}

	firstInstall, err := c.appendInstalled(ctx, userID, pluginID)
	if err != nil {
		return err
	}

	if firstInstall {
		update := store.Document{"downloads": plugin.Downloads + 1}
		if err := c.store.UpdateDocument(ctx, store.CollectionPlugins, pluginID, update); err != nil {
			return apperrors.ErrPersistence.WithError(err)
		}
	}

	return nil
}

// Uninstall removes the plugin from the user's installed list and tears
// down its sandbox. Uninstalling a plugin that is not installed is a
// no-op.
func (c *Controller) Uninstall(ctx context.Context, userID, pluginID string) (err error) {
	if userID == "" {
		return apperrors.ErrUnauthenticated
	}
	defer func() { c.finish(ctx, userID, "uninstalled", pluginID, err, "Plugin removed") }()

	unlock := c.locks.lock(pluginID)
	defer unlock()

	user, err := c.fetchUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasInstalled(pluginID) {
		return nil
	}

	c.sandbox.Deactivate(userID, pluginID)

	update := store.Document{
		"installedPlugins": toAny(remove(user.InstalledPlugins, pluginID)),
		"activePlugins":    toAny(remove(user.ActivePlugins, pluginID)),
	}
	if err := c.store.SetDocument(ctx, store.CollectionUsers, userID, update, true); err != nil {
		return apperrors.ErrPersistence.WithError(err)
	}

	c.registry.Discard(userID, pluginID)
	return nil
}

// Activate runs the plugin in a fresh sandbox context and persists the
// active flag. An execution failure leaves the plugin inactive.
func (c *Controller) Activate(ctx context.Context, userID, pluginID string) (err error) {
	if userID == "" {
		return apperrors.ErrUnauthenticated
	}
	defer func() { c.finish(ctx, userID, "activated", pluginID, err, "Plugin activated") }()

	unlock := c.locks.lock(pluginID)
	defer unlock()

	user, err := c.fetchUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasInstalled(pluginID) {
		return apperrors.ErrPluginNotFound.WithMessage("plugin is not installed")
	}

	doc, err := c.store.GetDocument(ctx, store.CollectionPlugins, pluginID)
	if err == store.ErrNotFound {
		return apperrors.ErrPluginNotFound
	}
	if err != nil {
		return apperrors.ErrPersistence.WithError(err)
	}

	plugin := entity.PluginFromDocument(doc)
	if err := c.sandbox.Activate(ctx, userID, plugin); err != nil {
		c.metrics.ObserveSandboxFailure()
		return err
	}

	if !user.IsActive(pluginID) {
		update := store.Document{
			"activePlugins": toAny(append(remove(user.ActivePlugins, pluginID), pluginID)),
		}
		if err := c.store.SetDocument(ctx, store.CollectionUsers, userID, update, true); err != nil {
			// Keep activePlugins ⊆ installedPlugins observable state
			// consistent with the store before reporting failure.
			c.sandbox.Deactivate(userID, pluginID)
			return apperrors.ErrPersistence.WithError(err)
		}
	}

	c.registry.SetActive(userID, pluginID, true)
	return nil
}

// Deactivate tears down the plugin's sandbox context and clears the
// persisted active flag. Deactivating an inactive plugin is a no-op.
func (c *Controller) Deactivate(ctx context.Context, userID, pluginID string) (err error) {
	if userID == "" {
		return apperrors.ErrUnauthenticated
	}
	defer func() { c.finish(ctx, userID, "deactivated", pluginID, err, "Plugin deactivated") }()

	unlock := c.locks.lock(pluginID)
	defer unlock()

	user, err := c.fetchUser(ctx, userID)
	if err != nil {
		return err
	}

	c.sandbox.Deactivate(userID, pluginID)

	if user.IsActive(pluginID) {
		update := store.Document{
			"activePlugins": toAny(remove(user.ActivePlugins, pluginID)),
		}
		if err := c.store.SetDocument(ctx, store.CollectionUsers, userID, update, true); err != nil {
			return apperrors.ErrPersistence.WithError(err)
		}
	}

	c.registry.SetActive(userID, pluginID, false)
	return nil
}

// Save creates a new authored plugin or updates an existing one. Saving
// never appends a version-history record; that is what Publish is for.
func (c *Controller) Save(ctx context.Context, userID string, draft Draft, existingID string) (plugin *entity.Plugin, err error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	defer func() {
		id := existingID
		if plugin != nil {
			id = plugin.ID
		}
		c.finish(ctx, userID, "saved", id, err, "Plugin saved")
	}()

	now := entity.Now()

	if existingID == "" {
		plugin = &entity.Plugin{
			ID:          uuid.New().String(),
			Name:        draft.Name,
			Description: draft.Description,
			Version:     draft.Version,
			Icon:        draft.Icon,
			Author:      userID,
			Code:        draft.Code,
			IsPublic:    draft.IsPublic,
			CreatedAt:   now,
			LastUpdated: now,
		}

		unlock := c.locks.lock(plugin.ID)
		defer unlock()

		if err = c.store.SetDocument(ctx, store.CollectionPlugins, plugin.ID, plugin.ToDocument(), false); err != nil {
			err = apperrors.ErrPersistence.WithError(err)
			return nil, err
		}

		if err = c.appendAuthored(ctx, userID, plugin.ID); err != nil {
			return nil, err
		}
		return plugin, nil
	}

	unlock := c.locks.lock(existingID)
	defer unlock()

	plugin, err = c.fetchOwned(ctx, userID, existingID)
	if err != nil {
		return nil, err
	}

	update := store.Document{
		"name":        draft.Name,
		"description": draft.Description,
		"version":     draft.Version,
		"icon":        draft.Icon,
		"code":        draft.Code,
		"isPublic":    draft.IsPublic,
		"lastUpdated": now,
	}
	if err = c.store.UpdateDocument(ctx, store.CollectionPlugins, existingID, update); err != nil {
		err = apperrors.ErrPersistence.WithError(err)
		return nil, err
	}

	plugin.Name = draft.Name
	plugin.Description = draft.Description
	plugin.Version = draft.Version
	plugin.Icon = draft.Icon
	plugin.Code = draft.Code
	plugin.IsPublic = draft.IsPublic
	plugin.LastUpdated = now
	return plugin, nil
}

// Publish appends an immutable version record, then updates the plugin's
// current version and code. The two writes are one logical unit: when
// the version-history write fails, the plugin update does not proceed.
func (c *Controller) Publish(ctx context.Context, userID, pluginID, newVersion, newCode string) (err error) {
	if userID == "" {
		return apperrors.ErrUnauthenticated
	}
	defer func() { c.finish(ctx, userID, "published", pluginID, err, "Version "+newVersion+" published") }()

	unlock := c.locks.lock(pluginID)
	defer unlock()

	if _, err = c.fetchOwned(ctx, userID, pluginID); err != nil {
		return err
	}

	version := &entity.PluginVersion{
		ID:          uuid.New().String(),
		PluginID:    pluginID,
		Version:     newVersion,
		Code:        newCode,
		PublishedAt: entity.Now(),
	}
	if err := c.store.SetDocument(ctx, store.CollectionPluginVersions, version.ID, version.ToDocument(), false); err != nil {
		return apperrors.ErrPersistence.WithError(err)
	}

	update := store.Document{
		"version":     newVersion,
		"code":        newCode,
		"lastUpdated": entity.Now(),
	}
	if err := c.store.UpdateDocument(ctx, store.CollectionPlugins, pluginID, update); err != nil {
		return apperrors.ErrPersistence.WithError(err)
	}

	return nil
}

// Delete soft-deletes an owned plugin. The document and its version
// history remain; other users' installed lists are left alone, their
// dangling references are tolerated by registry loads.
func (c *Controller) Delete(ctx context.Context, userID, pluginID string) (err error) {
	if userID == "" {
		return apperrors.ErrUnauthenticated
	}
	defer func() { c.finish(ctx, userID, "deleted", pluginID, err, "Plugin deleted") }()

	unlock := c.locks.lock(pluginID)
	defer unlock()

	if _, err = c.fetchOwned(ctx, userID, pluginID); err != nil {
		return err
	}

	update := store.Document{
		"deleted":     true,
		"lastUpdated": entity.Now(),
	}
	if err := c.store.UpdateDocument(ctx, store.CollectionPlugins, pluginID, update); err != nil {
		return apperrors.ErrPersistence.WithError(err)
	}

	c.sandbox.Deactivate(userID, pluginID)

	user, err := c.fetchUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.HasInstalled(pluginID) || user.IsActive(pluginID) {
		userUpdate := store.Document{
			"installedPlugins": toAny(remove(user.InstalledPlugins, pluginID)),
			"activePlugins":    toAny(remove(user.ActivePlugins, pluginID)),
		}
		if err := c.store.SetDocument(ctx, store.CollectionUsers, userID, userUpdate, true); err != nil {
			return apperrors.ErrPersistence.WithError(err)
		}
	}

	c.registry.Discard(userID, pluginID)
	return nil
}

// Versions lists the immutable version history for a plugin.
func (c *Controller) Versions(ctx context.Context, pluginID string) ([]*entity.PluginVersion, error) {
	docs, err := c.store.Query(ctx, store.CollectionPluginVersions,
		[]store.Filter{store.Eq("pluginId", pluginID)},
		store.WithOrderBy("publishedAt", true),
	)
	if err != nil {
		return nil, apperrors.ErrPersistence.WithError(err)
	}

	versions := make([]*entity.PluginVersion, 0, len(docs))
	for _, doc := range docs {
		versions = append(versions, entity.PluginVersionFromDocument(doc))
	}
	return versions, nil
}

// appendInstalled adds the plugin id to the user's installedPlugins.
// Returns true when this was the user's first install of the plugin.
func (c *Controller) appendInstalled(ctx context.Context, userID, pluginID string) (bool, error) {
	user, err := c.fetchUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.HasInstalled(pluginID) {
		return false, nil
	}

	update := store.Document{
		"installedPlugins": toAny(append(user.InstalledPlugins, pluginID)),
	}
	if err := c.store.SetDocument(ctx, store.CollectionUsers, userID, update, true); err != nil {
		return false, apperrors.ErrPersistence.WithError(err)
	}
	return true, nil
}

func (c *Controller) appendAuthored(ctx context.Context, userID, pluginID string) error {
	user, err := c.fetchUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Owns(pluginID) {
		return nil
	}

	update := store.Document{
		"plugins": toAny(append(user.AuthoredPlugins, pluginID)),
	}
	if err := c.store.SetDocument(ctx, store.CollectionUsers, userID, update, true); err != nil {
		return apperrors.ErrPersistence.WithError(err)
	}
	return nil
}

// fetchUser loads the user document, treating a missing document as an
// empty state rather than an error.
func (c *Controller) fetchUser(ctx context.Context, userID string) (*entity.User, error) {
	doc, err := c.store.GetDocument(ctx, store.CollectionUsers, userID)
	if err == store.ErrNotFound {
		return &entity.User{ID: userID}, nil
	}
	if err != nil {
		return nil, apperrors.ErrPersistence.WithError(err)
	}
	return entity.UserFromDocument(doc), nil
}

// fetchOwned loads a plugin and verifies the caller authored it.
func (c *Controller) fetchOwned(ctx context.Context, userID, pluginID string) (*entity.Plugin, error) {
	doc, err := c.store.GetDocument(ctx, store.CollectionPlugins, pluginID)
	if err == store.ErrNotFound {
		return nil, apperrors.ErrPluginNotFound
	}
	if err != nil {
		return nil, apperrors.ErrPersistence.WithError(err)
	}

	plugin := entity.PluginFromDocument(doc)
	if plugin.Author != userID {
		return nil, apperrors.ErrForbidden.WithMessage("you do not own this plugin")
	}
	return plugin, nil
}

func humanMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return fmt.Sprintf("operation failed: %v", err)
}

func remove(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
