package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aharden/tabhome/pkg/errors"
)

const clockSource = `/*{
    "name": "Digital Clock",
    "version": "1.0.0",
    "description": "Adds a digital clock to your dashboard",
    "isPublic": true
}*/
clock = os ~= nil and "no" or "ok"
`

func TestParse(t *testing.T) {
	m, err := Parse(clockSource)
	require.NoError(t, err)

	assert.Equal(t, "Digital Clock", m.Name)
	assert.Equal(t, "1.0.0", m.Version)
	assert.Equal(t, "Adds a digital clock to your dashboard", m.Description)
	assert.True(t, m.IsPublic)
}

func TestParse_MissingManifest(t *testing.T) {
	_, err := Parse(`x = 1`)
	assert.True(t, apperrors.Is(err, apperrors.ErrManifestMissing))
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse(`/*{ not json }*/ x = 1`)
	assert.True(t, apperrors.Is(err, apperrors.ErrManifestMalformed))
}

func TestParse_RequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"missing name", `/*{"version": "1.0.0"}*/`},
		{"missing version", `/*{"name": "Clock"}*/`},
		{"empty object", `/*{}*/`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.source)
			assert.True(t, apperrors.Is(err, apperrors.ErrManifestMalformed))
		})
	}
}

func TestParse_FirstBlockWins(t *testing.T) {
	source := `/*{"name": "First", "version": "1.0.0"}*/
/*{"name": "Second", "version": "2.0.0"}*/`

	m, err := Parse(source)
	require.NoError(t, err)
	assert.Equal(t, "First", m.Name)
}

func TestStrip(t *testing.T) {
	stripped := Strip(clockSource)
	assert.NotContains(t, stripped, "/*")
	assert.NotContains(t, stripped, "*/")
	assert.Contains(t, stripped, "clock =")
}

func TestStrip_NoManifest(t *testing.T) {
	assert.Equal(t, "x = 1", Strip("x = 1"))
}

func TestSerialize_RoundTrip(t *testing.T) {
	original := &Manifest{
		Name:        "Weather Widget",
		Version:     "2.1.0",
		Description: "Shows the local weather",
		Icon:        "cloud",
		IsPublic:    true,
	}

	block, err := Serialize(original)
	require.NoError(t, err)

	parsed, err := Parse(block + "\nwidget = true\n")
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}
