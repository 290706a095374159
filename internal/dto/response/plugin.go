package response

import (
	"github.com/aharden/tabhome/internal/domain/entity"
	"github.com/aharden/tabhome/internal/registry"
)

// PluginResponse represents plugin data in responses. Code is included
// only where the caller legitimately needs the source (owner views).
type PluginResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Version     string  `json:"version"`
	Icon        string  `json:"icon,omitempty"`
	Author      string  `json:"author,omitempty"`
	Code        string  `json:"code,omitempty"`
	IsPublic    bool    `json:"isPublic"`
	Downloads   int64   `json:"downloads"`
	Rating      float64 `json:"rating"`
	RatingCount int64   `json:"ratingCount"`
	CreatedAt   string  `json:"createdAt,omitempty"`
	LastUpdated string  `json:"lastUpdated,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// FromPlugin maps an entity to its response form, without code.
func FromPlugin(p *entity.Plugin) PluginResponse {
	return PluginResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Version:     p.Version,
		Icon:        p.Icon,
		Author:      p.Author,
		IsPublic:    p.IsPublic,
		Downloads:   p.Downloads,
		Rating:      p.Rating,
		RatingCount: p.RatingCount,
		CreatedAt:   p.CreatedAt,
		LastUpdated: p.LastUpdated,
	}
}

// FromPluginWithCode maps an entity including its source text.
func FromPluginWithCode(p *entity.Plugin) PluginResponse {
	resp := FromPlugin(p)
	resp.Code = p.Code
	return resp
}

// FromEntry maps a registry entry, carrying the active flag.
func FromEntry(e *registry.Entry) PluginResponse {
	resp := FromPlugin(e.Plugin)
	active := e.Active
	resp.Active = &active
	return resp
}

// FromPlugins maps a slice of entities.
func FromPlugins(plugins []*entity.Plugin) []PluginResponse {
	out := make([]PluginResponse, len(plugins))
	for i, p := range plugins {
		out[i] = FromPlugin(p)
	}
	return out
}

// VersionResponse represents one published version record.
type VersionResponse struct {
	ID          string `json:"id"`
	PluginID    string `json:"pluginId"`
	Version     string `json:"version"`
	PublishedAt string `json:"publishedAt"`
}

// FromVersions maps version entities, omitting the code bodies.
func FromVersions(versions []*entity.PluginVersion) []VersionResponse {
	out := make([]VersionResponse, len(versions))
	for i, v := range versions {
		out[i] = VersionResponse{
			ID:          v.ID,
			PluginID:    v.PluginID,
			Version:     v.Version,
			PublishedAt: v.PublishedAt,
		}
	}
	return out
}
