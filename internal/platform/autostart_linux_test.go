package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDesktopEntryQuotesArguments(t *testing.T) {
	entry := buildDesktopEntry("Slidewake", "/opt/slide wake/slidewake", []string{"--media-dir", "/srv/signage", "--title", "Lobby $1"})

	assert.Contains(t, entry, "Name=Slidewake\n")
	assert.Contains(t, entry, `Exec="/opt/slide wake/slidewake" --media-dir /srv/signage --title "Lobby \$1"`)
}

func TestAutostartRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	service := NewService()

	enabled, err := service.AutostartEnabled("Slidewake")
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, service.EnableAutostart("Slidewake", "/usr/bin/slidewake", []string{"--media-dir", "/srv/signage"}))
	enabled, err = service.AutostartEnabled("Slidewake")
	require.NoError(t, err)
	assert.True(t, enabled)

	configDir, err := service.GetConfigDir()
	require.NoError(t, err)
	content, err := os.ReadFile(filepath.Join(configDir, "autostart", "slidewake.desktop"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Exec=/usr/bin/slidewake --media-dir /srv/signage")

	require.NoError(t, service.DisableAutostart("Slidewake"))
	require.NoError(t, service.DisableAutostart("Slidewake"))
	enabled, err = service.AutostartEnabled("Slidewake")
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestAppConfigDirIsCreated(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir, err := NewService().AppConfigDir("Slidewake")
	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "slidewake", filepath.Base(dir))
}
