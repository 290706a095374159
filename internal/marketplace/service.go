// Package marketplace is the queryable catalog of publicly visible,
// non-deleted plugins.
package marketplace

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/aharden/tabhome/internal/domain/entity"
	"github.com/aharden/tabhome/internal/lifecycle"
	"github.com/aharden/tabhome/internal/store"
	apperrors "github.com/aharden/tabhome/pkg/errors"
)

// Filter selects the catalog ordering.
type Filter string

const (
	// FilterNone keeps store-native order.
	FilterNone Filter = ""
	// FilterPopular orders by downloads, descending.
	FilterPopular Filter = "popular"
	// FilterRecent orders by last update, descending.
	FilterRecent Filter = "recent"
)

// ParseFilter maps a query value to a Filter; unknown values fall back
// to the unordered default.
func ParseFilter(s string) Filter {
	switch Filter(s) {
	case FilterPopular:
		return FilterPopular
	case FilterRecent:
		return FilterRecent
	default:
		return FilterNone
	}
}

// Service queries the document store for the marketplace catalog and
// delegates installs to the lifecycle controller.
type Service struct {
	store      store.Store
	controller *lifecycle.Controller
	logger     *zap.Logger
	pageSize   int64

	mu       sync.RWMutex
	lastList []*entity.Plugin
}

// NewService creates a marketplace Service.
func NewService(st store.Store, controller *lifecycle.Controller, pageSize int, logger *zap.Logger) *Service {
	return &Service{
		store:      st,
		controller: controller,
		logger:     logger,
		pageSize:   int64(pageSize),
	}
}

// List returns the plugins where isPublic ∧ not deleted, ordered per the
// filter. The result is cached as the base set for Search.
func (s *Service) List(ctx context.Context, filter Filter) ([]*entity.Plugin, error) {
	filters := []store.Filter{
		store.Eq("isPublic", true),
		store.Eq("deleted", false),
	}

	opts := []store.QueryOption{}
	switch filter {
	case FilterPopular:
		opts = append(opts, store.WithOrderBy("downloads", true))
	case FilterRecent:
		opts = append(opts, store.WithOrderBy("lastUpdated", true))
	}
	if s.pageSize > 0 {
		opts = append(opts, store.WithLimit(s.pageSize))
	}

	docs, err := s.store.Query(ctx, store.CollectionPlugins, filters, opts...)
	if err != nil {
		// Read path: empty view plus diagnostic, no user notification.
		s.logger.Error("marketplace query failed",
			zap.String("filter", string(filter)),
			zap.Error(err),
		)
		return nil, apperrors.ErrPersistence.WithError(err)
	}

	plugins := make([]*entity.Plugin, 0, len(docs))
	for _, doc := range docs {
		plugins = append(plugins, entity.PluginFromDocument(doc))
	}

	s.mu.Lock()
	s.lastList = plugins
	s.mu.Unlock()

	return plugins, nil
}

// Search narrows the most recently listed result set by case-insensitive
// substring match on name or description. It filters the cached list
// rather than issuing a fresh query, so results always reflect the last
// List call.
func (s *Service) Search(term string) []*entity.Plugin {
	s.mu.RLock()
	base := s.lastList
	s.mu.RUnlock()

	needle := strings.ToLower(term)
	results := make([]*entity.Plugin, 0, len(base))
	for _, p := range base {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle) {
			results = append(results, p)
		}
	}
	return results
}

// Install installs a marketplace plugin for the user, delegating to the
// lifecycle controller. The download counter moves only on the user's
// first install.
func (s *Service) Install(ctx context.Context, userID, pluginID string) error {
	return s.controller.InstallByID(ctx, userID, pluginID)
}
