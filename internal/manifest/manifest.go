// Package manifest parses the metadata block embedded at the head of
// plugin source text. The manifest is a JSON object inside the first
// block comment:
//
//	/*{
//	    "name": "Digital Clock",
//	    "version": "1.0.0",
//	    "description": "Adds a digital clock to your dashboard"
//	}*/
//
// The comment block is metadata only; Strip removes it so the comment
// syntax never reaches the sandbox.
package manifest

import (
	"encoding/json"
	"regexp"
	"strings"

	apperrors "github.com/aharden/tabhome/pkg/errors"
)

// Manifest is the structured metadata of a plugin. Name and Version are
// required; everything else is optional.
type Manifest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
	Icon        string `json:"icon,omitempty"`
	Author      string `json:"author,omitempty"`
	IsPublic    bool   `json:"isPublic,omitempty"`
}

var blockComment = regexp.MustCompile(`(?s)/\*(.*?)\*/`)

// Parse extracts the manifest from raw plugin source text. Pure and
// deterministic; tolerates leading and trailing whitespace inside the
// comment block.
func Parse(source string) (*Manifest, error) {
	match := blockComment.FindStringSubmatch(source)
	if match == nil {
		return nil, apperrors.ErrManifestMissing
	}

	body := strings.TrimSpace(match[1])

	var m Manifest
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return nil, apperrors.ErrManifestMalformed.WithError(err)
	}

	if m.Name == "" || m.Version == "" {
		return nil, apperrors.ErrManifestMalformed.WithMessage("manifest requires name and version")
	}

	return &m, nil
}

// Strip removes the first block comment from plugin source, leaving only
// the executable payload.
func Strip(source string) string {
	loc := blockComment.FindStringIndex(source)
	if loc == nil {
		return source
	}
	return source[:loc[0]] + source[loc[1]:]
}

// Serialize renders a manifest as the comment block Parse accepts.
// Round-trips with Parse for any valid manifest.
func Serialize(m *Manifest) (string, error) {
	body, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return "", err
	}
	return "/*" + string(body) + "*/\n", nil
}
