package tray

import (
	"fmt"

	"slidewake/internal/core/rotator"

	"fyne.io/fyne/v2"
)

// MenuHost is the part of desktop.App the tray needs.
type MenuHost interface {
	SetSystemTrayMenu(menu *fyne.Menu)
}

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnShow             func()
	OnSetup            func()
	OnToggleFullscreen func()
	OnToggleKeepAwake  func(bool)
	OnToggleAutostart  func(bool)
	OnQuit             func()
}

// Manager handles system tray state.
type Manager struct {
	app            MenuHost
	statusItem     *fyne.MenuItem
	showItem       *fyne.MenuItem
	setupItem      *fyne.MenuItem
	fullscreenItem *fyne.MenuItem
	keepAwakeItem  *fyne.MenuItem
	autostartItem  *fyne.MenuItem
	quitItem       *fyne.MenuItem
	callbacks      Callbacks
	statusLabel    string
}

// New creates a tray manager with the provided callbacks.
func New(app MenuHost, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:       app,
		callbacks: callbacks,
	}

	manager.statusItem = fyne.NewMenuItem("Status: starting...", nil)
	manager.statusItem.Disabled = true

	manager.showItem = fyne.NewMenuItem("Show slideshow", func() {
		if manager.callbacks.OnShow != nil {
			manager.callbacks.OnShow()
		}
	})

	manager.setupItem = fyne.NewMenuItem("Choose media...", func() {
		if manager.callbacks.OnSetup != nil {
			manager.callbacks.OnSetup()
		}
	})

	manager.fullscreenItem = fyne.NewMenuItem("Toggle fullscreen", func() {
		if manager.callbacks.OnToggleFullscreen != nil {
			manager.callbacks.OnToggleFullscreen()
		}
	})

	manager.keepAwakeItem = fyne.NewMenuItem("Keep screen awake", func() {
		enabled := !manager.keepAwakeItem.Checked
		manager.SetKeepAwake(enabled)
		if manager.callbacks.OnToggleKeepAwake != nil {
			manager.callbacks.OnToggleKeepAwake(enabled)
		}
	})

	manager.autostartItem = fyne.NewMenuItem("Start on login", func() {
		enabled := !manager.autostartItem.Checked
		manager.SetAutostart(enabled)
		if manager.callbacks.OnToggleAutostart != nil {
			manager.callbacks.OnToggleAutostart(enabled)
		}
	})

	manager.quitItem = fyne.NewMenuItem("Quit", func() {
		if manager.callbacks.OnQuit != nil {
			manager.callbacks.OnQuit()
		}
	})
	manager.quitItem.IsQuit = true

	manager.refreshMenu()
	return manager
}

// SetStatus updates the status label.
func (manager *Manager) SetStatus(status string) {
	manager.statusLabel = status
	manager.statusItem.Label = fmt.Sprintf("Status: %s", status)
	manager.refreshMenu()
}

// SetKeepAwake updates the keep-awake check mark.
func (manager *Manager) SetKeepAwake(enabled bool) {
	manager.keepAwakeItem.Checked = enabled
	manager.refreshMenu()
}

// SetAutostart updates the start-on-login check mark.
func (manager *Manager) SetAutostart(enabled bool) {
	manager.autostartItem.Checked = enabled
	manager.refreshMenu()
}

// Status returns the last status set.
func (manager *Manager) Status() string {
	return manager.statusLabel
}

// Describe renders a rotator snapshot as a short status line.
func Describe(snapshot rotator.Snapshot) string {
	switch snapshot.State {
	case rotator.StateEmpty:
		return "no media"
	case rotator.StateSingle:
		return "showing 1 slide"
	case rotator.StateRotating:
		return fmt.Sprintf("slide %d of %d", snapshot.Index+1, snapshot.Length)
	case rotator.StateStopped:
		return "stopped"
	default:
		return string(snapshot.State)
	}
}

func (manager *Manager) refreshMenu() {
	if manager.app == nil {
		return
	}
	manager.app.SetSystemTrayMenu(fyne.NewMenu("Slidewake",
		manager.statusItem,
		fyne.NewMenuItemSeparator(),
		manager.showItem,
		manager.setupItem,
		manager.fullscreenItem,
		fyne.NewMenuItemSeparator(),
		manager.keepAwakeItem,
		manager.autostartItem,
		fyne.NewMenuItemSeparator(),
		manager.quitItem,
	))
}
