package platform

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	mutterIdleDest      = "org.gnome.Mutter.IdleMonitor"
	mutterIdlePath      = "/org/gnome/Mutter/IdleMonitor/Core"
	mutterIdleInterface = "org.gnome.Mutter.IdleMonitor"
)

// xprintidleProvider covers X11 sessions.
type xprintidleProvider struct {
	path string
}

// mutterIdleProvider covers GNOME sessions, including Wayland where
// xprintidle cannot see input.
type mutterIdleProvider struct {
	conn *dbus.Conn
}

type unsupportedIdleProvider struct{}

func newIdleProvider() IdleProvider {
	wayland := strings.EqualFold(os.Getenv("XDG_SESSION_TYPE"), "wayland")
	if !wayland {
		if path, err := exec.LookPath("xprintidle"); err == nil {
			return &xprintidleProvider{path: path}
		}
	}
	if conn, err := dbus.SessionBus(); err == nil {
		return &mutterIdleProvider{conn: conn}
	}
	return unsupportedIdleProvider{}
}

func (provider *xprintidleProvider) IdleDuration() (time.Duration, error) {
	output, err := exec.Command(provider.path).Output()
	if err != nil {
		return 0, fmt.Errorf("xprintidle: %w", err)
	}
	return parseIdleMillis(string(output))
}

func (provider *mutterIdleProvider) IdleDuration() (time.Duration, error) {
	var idleMillis uint64
	err := provider.conn.Object(mutterIdleDest, mutterIdlePath).
		Call(mutterIdleInterface+".GetIdletime", 0).
		Store(&idleMillis)
	if err != nil {
		var dbusErr dbus.Error
		if asDBusError(err, &dbusErr) && dbusErr.Name == "org.freedesktop.DBus.Error.ServiceUnknown" {
			return 0, ErrIdleUnsupported
		}
		return 0, fmt.Errorf("mutter idle monitor: %w", err)
	}
	return time.Duration(idleMillis) * time.Millisecond, nil
}

func (unsupportedIdleProvider) IdleDuration() (time.Duration, error) {
	return 0, ErrIdleUnsupported
}

func parseIdleMillis(output string) (time.Duration, error) {
	value := strings.TrimSpace(output)
	idleMillis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse idle milliseconds: %w", err)
	}
	if idleMillis < 0 {
		idleMillis = 0
	}
	return time.Duration(idleMillis) * time.Millisecond, nil
}

func asDBusError(err error, target *dbus.Error) bool {
	switch typed := err.(type) {
	case dbus.Error:
		*target = typed
		return true
	case *dbus.Error:
		*target = *typed
		return true
	}
	return false
}
