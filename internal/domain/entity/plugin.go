// Package entity defines the domain model shared by the registry,
// lifecycle controller, and marketplace.
package entity

import (
	"time"

	"github.com/aharden/tabhome/internal/store"
)

// TimeFormat is the wire format for timestamps (ISO-8601, UTC).
const TimeFormat = time.RFC3339

// Plugin is the central entity: a unit of user-installable executable
// content with an embedded manifest and a code body.
type Plugin struct {
	ID          string
	Name        string
	Description string
	Version     string
	Icon        string
	Author      string
	Code        string
	IsPublic    bool
	Deleted     bool
	Downloads   int64
	Rating      float64
	RatingCount int64
	CreatedAt   string
	LastUpdated string
}

// ToDocument maps the plugin to its store document.
func (p *Plugin) ToDocument() store.Document {
	return store.Document{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"version":     p.Version,
		"icon":        p.Icon,
		"author":      p.Author,
		"code":        p.Code,
		"isPublic":    p.IsPublic,
		"deleted":     p.Deleted,
		"downloads":   p.Downloads,
		"rating":      p.Rating,
		"ratingCount": p.RatingCount,
		"createdAt":   p.CreatedAt,
		"lastUpdated": p.LastUpdated,
	}
}

// PluginFromDocument maps a store document to a Plugin.
func PluginFromDocument(doc store.Document) *Plugin {
	rating, _ := doc["rating"].(float64)
	return &Plugin{
		ID:          doc.String("id"),
		Name:        doc.String("name"),
		Description: doc.String("description"),
		Version:     doc.String("version"),
		Icon:        doc.String("icon"),
		Author:      doc.String("author"),
		Code:        doc.String("code"),
		IsPublic:    doc.Bool("isPublic"),
		Deleted:     doc.Bool("deleted"),
		Downloads:   doc.Int64("downloads"),
		Rating:      rating,
		RatingCount: doc.Int64("ratingCount"),
		CreatedAt:   doc.String("createdAt"),
		LastUpdated: doc.String("lastUpdated"),
	}
}

// PluginVersion is an immutable snapshot appended on every publish.
type PluginVersion struct {
	ID          string
	PluginID    string
	Version     string
	Code        string
	PublishedAt string
}

// ToDocument maps the version record to its store document.
func (v *PluginVersion) ToDocument() store.Document {
	return store.Document{
		"id":          v.ID,
		"pluginId":    v.PluginID,
		"version":     v.Version,
		"code":        v.Code,
		"publishedAt": v.PublishedAt,
	}
}

// PluginVersionFromDocument maps a store document to a PluginVersion.
func PluginVersionFromDocument(doc store.Document) *PluginVersion {
	return &PluginVersion{
		ID:          doc.String("id"),
		PluginID:    doc.String("pluginId"),
		Version:     doc.String("version"),
		Code:        doc.String("code"),
		PublishedAt: doc.String("publishedAt"),
	}
}

// Now returns the current time in wire format.
func Now() string {
	return time.Now().UTC().Format(TimeFormat)
}
