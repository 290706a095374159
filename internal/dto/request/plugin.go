package request

// InstallPluginRequest carries uploaded plugin source text. The manifest
// is embedded in the source; nothing else is needed.
type InstallPluginRequest struct {
	Source string `json:"source" binding:"required"`
}

// SaveDraftRequest carries the editor's save payload.
type SaveDraftRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description,omitempty" binding:"max=1000"`
	Version     string `json:"version" binding:"required,max=50"`
	Icon        string `json:"icon,omitempty" binding:"max=500"`
	Code        string `json:"code" binding:"required"`
	IsPublic    bool   `json:"isPublic,omitempty"`
}

// PublishRequest carries a new version publication.
type PublishRequest struct {
	Version string `json:"version" binding:"required,max=50"`
	Code    string `json:"code" binding:"required"`
}

// PreferencesRequest carries a dashboard preferences update.
type PreferencesRequest struct {
	DarkMode   bool     `json:"darkMode"`
	SavedLinks []string `json:"savedLinks"`
}
