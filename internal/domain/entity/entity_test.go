package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aharden/tabhome/internal/store"
)

func TestPlugin_DocumentRoundTrip(t *testing.T) {
	p := &Plugin{
		ID:          "p1",
		Name:        "Digital Clock",
		Description: "Adds a digital clock to your dashboard",
		Version:     "1.0.0",
		Icon:        "clock",
		Author:      "u1",
		Code:        `/*{"name":"Digital Clock","version":"1.0.0"}*/ tick = 1`,
		IsPublic:    true,
		Downloads:   42,
		Rating:      4.5,
		RatingCount: 10,
		CreatedAt:   Now(),
		LastUpdated: Now(),
	}

	got := PluginFromDocument(p.ToDocument())
	assert.Equal(t, p, got)
}

func TestPluginFromDocument_FloatDownloads(t *testing.T) {
	// JSON decoding yields float64 for numbers.
	doc := store.Document{"id": "p1", "downloads": float64(7)}
	p := PluginFromDocument(doc)
	assert.Equal(t, int64(7), p.Downloads)
}

func TestUser_DocumentRoundTrip(t *testing.T) {
	u := &User{
		ID:               "u1",
		Email:            "dev@example.com",
		DisplayName:      "Dev",
		CreatedAt:        Now(),
		LastLogin:        Now(),
		InstalledPlugins: []string{"a", "b"},
		AuthoredPlugins:  []string{"b"},
		ActivePlugins:    []string{"a"},
		Preferences: Preferences{
			DarkMode:   true,
			SavedLinks: []string{"https://example.com"},
		},
	}

	got := UserFromDocument(u.ToDocument())
	assert.Equal(t, u, got)
}

func TestUser_StateHelpers(t *testing.T) {
	u := &User{
		InstalledPlugins: []string{"a", "b"},
		ActivePlugins:    []string{"a"},
		AuthoredPlugins:  []string{"c"},
	}

	assert.True(t, u.HasInstalled("a"))
	assert.False(t, u.HasInstalled("c"))
	assert.True(t, u.IsActive("a"))
	assert.False(t, u.IsActive("b"))
	assert.True(t, u.Owns("c"))
	assert.False(t, u.Owns("a"))
}

func TestUserFromDocument_EmptyDocument(t *testing.T) {
	u := UserFromDocument(store.Document{"id": "u1"})
	assert.Equal(t, "u1", u.ID)
	assert.Empty(t, u.InstalledPlugins)
	assert.Empty(t, u.ActivePlugins)
	assert.False(t, u.Preferences.DarkMode)
}

func TestPluginVersion_DocumentRoundTrip(t *testing.T) {
	v := &PluginVersion{
		ID:          "v1",
		PluginID:    "p1",
		Version:     "1.1.0",
		Code:        "tick = 2",
		PublishedAt: Now(),
	}

	got := PluginVersionFromDocument(v.ToDocument())
	assert.Equal(t, v, got)
}
