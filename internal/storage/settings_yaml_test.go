package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"slidewake/internal/core/model"
	"slidewake/internal/ui/setup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsMissingFileReturnsDefaults(t *testing.T) {
	settings, err := LoadSettings(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	assert.Equal(t, setup.DefaultSettings(), settings)
}

func TestSaveAndLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	settings := setup.DefaultSettings()
	settings.Title = "Lobby"
	settings.MediaDir = "/srv/signage"
	settings.Media = []string{"https://example.com/a.jpg"}
	settings.DwellPolicy = model.DwellUniform
	settings.Dwell = 12 * time.Second
	settings.KeepAwake = false
	settings.StatusAddr = "127.0.0.1:9000"
	settings.LogLevel = "debug"

	require.NoError(t, SaveSettings(path, settings))
	loaded, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, settings, loaded)

	_, err = os.Stat(path + ".tmp")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadSettingsClampsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := `
title: "  Welcome  "
dwell_policy: random
first_dwell_seconds: -4
dwell_seconds: 99999
log_level: LOUD
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	settings, err := LoadSettings(path)
	require.NoError(t, err)

	defaults := setup.DefaultSettings()
	assert.Equal(t, "Welcome", settings.Title)
	assert.Equal(t, defaults.DwellPolicy, settings.DwellPolicy)
	assert.Equal(t, defaults.FirstDwell, settings.FirstDwell)
	assert.Equal(t, defaults.Dwell, settings.Dwell)
	assert.Equal(t, defaults.LogLevel, settings.LogLevel)
	assert.True(t, settings.KeepAwake)
	assert.True(t, settings.Fullscreen)
}

func TestLoadSettingsRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: [unclosed"), 0o600))

	_, err := LoadSettings(path)
	assert.ErrorContains(t, err, "parse settings yaml")
}
