package tray

import (
	"testing"

	"slidewake/internal/core/rotator"

	"fyne.io/fyne/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHost struct {
	menus []*fyne.Menu
}

func (host *recordingHost) SetSystemTrayMenu(menu *fyne.Menu) {
	host.menus = append(host.menus, menu)
}

func (host *recordingHost) item(t *testing.T, label string) *fyne.MenuItem {
	t.Helper()
	require.NotEmpty(t, host.menus)
	for _, item := range host.menus[len(host.menus)-1].Items {
		if item.Label == label {
			return item
		}
	}
	t.Fatalf("menu item %q not found", label)
	return nil
}

func TestMenuIsInstalledOnCreate(t *testing.T) {
	host := &recordingHost{}
	New(host, Callbacks{})

	require.Len(t, host.menus, 1)
	status := host.item(t, "Status: starting...")
	assert.True(t, status.Disabled)
	assert.True(t, host.item(t, "Quit").IsQuit)
}

func TestKeepAwakeToggleReportsNewState(t *testing.T) {
	host := &recordingHost{}
	var got []bool
	manager := New(host, Callbacks{OnToggleKeepAwake: func(enabled bool) { got = append(got, enabled) }})
	manager.SetKeepAwake(true)

	host.item(t, "Keep screen awake").Action()
	assert.Equal(t, []bool{false}, got)
	assert.False(t, host.item(t, "Keep screen awake").Checked)

	host.item(t, "Keep screen awake").Action()
	assert.Equal(t, []bool{false, true}, got)
}

func TestAutostartToggle(t *testing.T) {
	host := &recordingHost{}
	var got []bool
	New(host, Callbacks{OnToggleAutostart: func(enabled bool) { got = append(got, enabled) }})

	host.item(t, "Start on login").Action()
	assert.Equal(t, []bool{true}, got)
	assert.True(t, host.item(t, "Start on login").Checked)
}

func TestSetStatusRefreshesMenu(t *testing.T) {
	host := &recordingHost{}
	manager := New(host, Callbacks{})

	manager.SetStatus("slide 2 of 5")

	assert.Equal(t, "slide 2 of 5", manager.Status())
	host.item(t, "Status: slide 2 of 5")
}

func TestActionsWithoutCallbacksDoNothing(t *testing.T) {
	host := &recordingHost{}
	New(host, Callbacks{})

	assert.NotPanics(t, func() {
		host.item(t, "Show slideshow").Action()
		host.item(t, "Choose media...").Action()
		host.item(t, "Toggle fullscreen").Action()
		host.item(t, "Quit").Action()
	})
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "no media", Describe(rotator.Snapshot{State: rotator.StateEmpty}))
	assert.Equal(t, "showing 1 slide", Describe(rotator.Snapshot{State: rotator.StateSingle, Length: 1}))
	assert.Equal(t, "slide 3 of 4", Describe(rotator.Snapshot{State: rotator.StateRotating, Index: 2, Length: 4}))
	assert.Equal(t, "stopped", Describe(rotator.Snapshot{State: rotator.StateStopped}))
}
