// Package profile maintains the per-user document: identity fields
// written at sign-in and dashboard preferences.
package profile

import (
	"context"

	"go.uber.org/zap"

	"github.com/aharden/tabhome/internal/domain/entity"
	"github.com/aharden/tabhome/internal/store"
	apperrors "github.com/aharden/tabhome/pkg/errors"
)

// Identity carries the profile fields supplied by the auth provider.
type Identity struct {
	Email       string
	DisplayName string
	PhotoURL    string
}

// Service reads and writes user documents.
type Service struct {
	store  store.Store
	logger *zap.Logger
}

// NewService creates a profile Service.
func NewService(st store.Store, logger *zap.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// EnsureUser upserts the profile fields on sign-in, stamping createdAt
// on first contact and lastLogin always. Plugin state lists are left
// untouched by the merge.
func (s *Service) EnsureUser(ctx context.Context, userID string, ident Identity) error {
	if userID == "" {
		return apperrors.ErrUnauthenticated
	}

	now := entity.Now()
	fields := store.Document{
		"id":          userID,
		"email":       ident.Email,
		"displayName": ident.DisplayName,
		"photoURL":    ident.PhotoURL,
		"lastLogin":   now,
	}

	if _, err := s.store.GetDocument(ctx, store.CollectionUsers, userID); err == store.ErrNotFound {
		fields["createdAt"] = now
	} else if err != nil {
		return apperrors.ErrPersistence.WithError(err)
	}

	if err := s.store.SetDocument(ctx, store.CollectionUsers, userID, fields, true); err != nil {
		return apperrors.ErrPersistence.WithError(err)
	}
	return nil
}

// Get loads the user document; a missing document yields an empty user.
func (s *Service) Get(ctx context.Context, userID string) (*entity.User, error) {
	doc, err := s.store.GetDocument(ctx, store.CollectionUsers, userID)
	if err == store.ErrNotFound {
		return &entity.User{ID: userID}, nil
	}
	if err != nil {
		return nil, apperrors.ErrPersistence.WithError(err)
	}
	return entity.UserFromDocument(doc), nil
}

// Preferences returns the user's dashboard preferences.
func (s *Service) Preferences(ctx context.Context, userID string) (*entity.Preferences, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	prefs := user.Preferences
	return &prefs, nil
}

// UpdatePreferences replaces the user's dashboard preferences.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, prefs entity.Preferences) error {
	if userID == "" {
		return apperrors.ErrUnauthenticated
	}

	links := prefs.SavedLinks
	if links == nil {
		links = []string{}
	}
	fields := store.Document{
		"preferences": store.Document{
			"darkMode":   prefs.DarkMode,
			"savedLinks": toAny(links),
		},
	}
	if err := s.store.SetDocument(ctx, store.CollectionUsers, userID, fields, true); err != nil {
		return apperrors.ErrPersistence.WithError(err)
	}
	return nil
}

// AuthoredPlugins lists the plugins the user created, including drafts
// and soft-deleted ones; the author's editor view keeps history visible.
func (s *Service) AuthoredPlugins(ctx context.Context, userID string) ([]*entity.Plugin, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	plugins := make([]*entity.Plugin, 0, len(user.AuthoredPlugins))
	for _, id := range user.AuthoredPlugins {
		doc, err := s.store.GetDocument(ctx, store.CollectionPlugins, id)
		if err != nil {
			s.logger.Warn("skipping unresolvable authored plugin",
				zap.String("user_id", userID),
				zap.String("plugin_id", id),
				zap.Error(err),
			)
			continue
		}
		plugins = append(plugins, entity.PluginFromDocument(doc))
	}
	return plugins, nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
