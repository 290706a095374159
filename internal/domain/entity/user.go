package entity

import (
	"github.com/aharden/tabhome/internal/store"
)

// Preferences holds per-user dashboard preferences.
type Preferences struct {
	DarkMode   bool     `json:"darkMode"`
	SavedLinks []string `json:"savedLinks"`
}

// User is the per-user document: profile fields plus the plugin state
// lists the lifecycle controller maintains.
type User struct {
	ID          string
	Email       string
	DisplayName string
	PhotoURL    string
	CreatedAt   string
	LastLogin   string

	// InstalledPlugins is ordered by install time, no duplicates.
	InstalledPlugins []string
	// AuthoredPlugins lists plugin ids the user created.
	AuthoredPlugins []string
	// ActivePlugins is always a subset of InstalledPlugins after any
	// completed operation.
	ActivePlugins []string

	Preferences Preferences
}

// ToDocument maps the user to its store document.
func (u *User) ToDocument() store.Document {
	return store.Document{
		"id":               u.ID,
		"email":            u.Email,
		"displayName":      u.DisplayName,
		"photoURL":         u.PhotoURL,
		"createdAt":        u.CreatedAt,
		"lastLogin":        u.LastLogin,
		"installedPlugins": toAnySlice(u.InstalledPlugins),
		"plugins":          toAnySlice(u.AuthoredPlugins),
		"activePlugins":    toAnySlice(u.ActivePlugins),
		"preferences": store.Document{
			"darkMode":   u.Preferences.DarkMode,
			"savedLinks": toAnySlice(u.Preferences.SavedLinks),
		},
	}
}

// UserFromDocument maps a store document to a User.
func UserFromDocument(doc store.Document) *User {
	u := &User{
		ID:               doc.String("id"),
		Email:            doc.String("email"),
		DisplayName:      doc.String("displayName"),
		PhotoURL:         doc.String("photoURL"),
		CreatedAt:        doc.String("createdAt"),
		LastLogin:        doc.String("lastLogin"),
		InstalledPlugins: doc.StringSlice("installedPlugins"),
		AuthoredPlugins:  doc.StringSlice("plugins"),
		ActivePlugins:    doc.StringSlice("activePlugins"),
	}

	if prefs, ok := doc["preferences"].(map[string]any); ok {
		pdoc := store.Document(prefs)
		u.Preferences = Preferences{
			DarkMode:   pdoc.Bool("darkMode"),
			SavedLinks: pdoc.StringSlice("savedLinks"),
		}
	} else if prefs, ok := doc["preferences"].(store.Document); ok {
		u.Preferences = Preferences{
			DarkMode:   prefs.Bool("darkMode"),
			SavedLinks: prefs.StringSlice("savedLinks"),
		}
	}

	return u
}

// HasInstalled reports whether the plugin id is in InstalledPlugins.
func (u *User) HasInstalled(pluginID string) bool {
	return contains(u.InstalledPlugins, pluginID)
}

// IsActive reports whether the plugin id is in ActivePlugins.
func (u *User) IsActive(pluginID string) bool {
	return contains(u.ActivePlugins, pluginID)
}

// Owns reports whether the user authored the plugin id.
func (u *User) Owns(pluginID string) bool {
	return contains(u.AuthoredPlugins, pluginID)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
