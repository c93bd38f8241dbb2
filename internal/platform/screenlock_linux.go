//go:build linux

package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"slidewake/internal/core/guard"
	"slidewake/internal/logging"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	screenSaverDest      = "org.freedesktop.ScreenSaver"
	screenSaverPath      = "/org/freedesktop/ScreenSaver"
	screenSaverInterface = "org.freedesktop.ScreenSaver"

	portalDest      = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	portalInterface = "org.freedesktop.portal.Inhibit"
	requestIface    = "org.freedesktop.portal.Request"

	// Inhibit flags from the portal interface.
	portalFlagSuspend = 4
	portalFlagIdle    = 8
)

type dbusScreenLock struct {
	appName string
	reason  string
	log     zerolog.Logger
}

func newScreenLock(ctx context.Context, appName, reason string) guard.ScreenLock {
	return &dbusScreenLock{
		appName: appName,
		reason:  reason,
		log:     logging.FromContext(ctx).With().Str("component", "screenlock").Logger(),
	}
}

// Acquire inhibits the screensaver on a private session bus connection, so
// that closing the connection also drops the inhibitor.
func (lock *dbusScreenLock) Acquire(ctx context.Context) (guard.LockHandle, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("acquire screen lock: %w: %v", guard.ErrScreenLockUnsupported, err)
	}

	handle, screenSaverErr := lock.inhibitScreenSaver(ctx, conn)
	if screenSaverErr == nil {
		return handle, nil
	}
	lock.log.Debug().Err(screenSaverErr).Msg("screensaver inhibit failed, trying portal")

	handle, portalErr := lock.inhibitPortal(ctx, conn)
	if portalErr == nil {
		return handle, nil
	}

	_ = conn.Close()
	if isServiceUnknown(screenSaverErr) && isServiceUnknown(portalErr) {
		return nil, fmt.Errorf("acquire screen lock: %w", guard.ErrScreenLockUnsupported)
	}
	return nil, fmt.Errorf("acquire screen lock: %w", errors.Join(screenSaverErr, portalErr))
}

func (lock *dbusScreenLock) inhibitScreenSaver(ctx context.Context, conn *dbus.Conn) (*dbusLockHandle, error) {
	// Inhibitors die with the owner of the screensaver name, so watch it first.
	match := []dbus.MatchOption{
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, screenSaverDest),
	}
	if err := conn.AddMatchSignalContext(ctx, match...); err != nil {
		return nil, fmt.Errorf("screensaver: add match: %w", err)
	}

	var cookie uint32
	err := conn.Object(screenSaverDest, screenSaverPath).
		CallWithContext(ctx, screenSaverInterface+".Inhibit", 0, lock.appName, lock.reason).
		Store(&cookie)
	if err != nil {
		_ = conn.RemoveMatchSignalContext(ctx, match...)
		return nil, fmt.Errorf("screensaver: inhibit: %w", err)
	}

	handle := newDBusLockHandle(conn, lock.log, func(sig *dbus.Signal) bool {
		if sig.Name != "org.freedesktop.DBus.NameOwnerChanged" || len(sig.Body) == 0 {
			return false
		}
		name, _ := sig.Body[0].(string)
		return name == screenSaverDest
	}, func(ctx context.Context) error {
		return conn.Object(screenSaverDest, screenSaverPath).
			CallWithContext(ctx, screenSaverInterface+".UnInhibit", 0, cookie).Err
	})
	lock.log.Debug().Uint32("cookie", cookie).Msg("screensaver inhibited")
	return handle, nil
}

func (lock *dbusScreenLock) inhibitPortal(ctx context.Context, conn *dbus.Conn) (*dbusLockHandle, error) {
	// The request path is predictable from the handle token, which lets us
	// subscribe to Response before the portal can emit it.
	token := "slidewake_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	sender := strings.ReplaceAll(strings.TrimPrefix(conn.Names()[0], ":"), ".", "_")
	requestPath := dbus.ObjectPath(portalPath + "/request/" + sender + "/" + token)

	match := []dbus.MatchOption{
		dbus.WithMatchObjectPath(requestPath),
		dbus.WithMatchInterface(requestIface),
		dbus.WithMatchMember("Response"),
	}
	if err := conn.AddMatchSignalContext(ctx, match...); err != nil {
		return nil, fmt.Errorf("portal: add match: %w", err)
	}

	options := map[string]dbus.Variant{
		"reason":       dbus.MakeVariant(lock.reason),
		"handle_token": dbus.MakeVariant(token),
	}
	var handlePath dbus.ObjectPath
	err := conn.Object(portalDest, portalPath).
		CallWithContext(ctx, portalInterface+".Inhibit", 0, "", uint32(portalFlagIdle|portalFlagSuspend), options).
		Store(&handlePath)
	if err != nil {
		_ = conn.RemoveMatchSignalContext(ctx, match...)
		return nil, fmt.Errorf("portal: inhibit: %w", err)
	}

	var (
		mu        sync.Mutex
		completed bool
	)
	handle := newDBusLockHandle(conn, lock.log, func(sig *dbus.Signal) bool {
		if sig.Path != handlePath || sig.Name != requestIface+".Response" {
			return false
		}
		mu.Lock()
		completed = true
		mu.Unlock()
		// A zero response only means the request finished; the inhibitor stays.
		if len(sig.Body) == 0 {
			return false
		}
		code, _ := sig.Body[0].(uint32)
		return code != 0
	}, func(ctx context.Context) error {
		mu.Lock()
		done := completed
		mu.Unlock()
		if done {
			return nil
		}
		return conn.Object(portalDest, handlePath).CallWithContext(ctx, requestIface+".Close", 0).Err
	})
	lock.log.Debug().Str("handle", string(handlePath)).Msg("portal inhibit active")
	return handle, nil
}

// dbusLockHandle watches its connection for a revocation signal.
type dbusLockHandle struct {
	conn     *dbus.Conn
	log      zerolog.Logger
	revoked  func(*dbus.Signal) bool
	release  func(context.Context) error
	signals  chan *dbus.Signal
	released chan struct{}
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
	err      error
}

func newDBusLockHandle(conn *dbus.Conn, log zerolog.Logger, revoked func(*dbus.Signal) bool, release func(context.Context) error) *dbusLockHandle {
	handle := &dbusLockHandle{
		conn:     conn,
		log:      log,
		revoked:  revoked,
		release:  release,
		signals:  make(chan *dbus.Signal, 8),
		released: make(chan struct{}),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	conn.Signal(handle.signals)
	go handle.watch()
	return handle
}

func (handle *dbusLockHandle) Released() <-chan struct{} {
	return handle.released
}

// Release drops the inhibitor and closes the connection. Calls after the
// first return the first result.
func (handle *dbusLockHandle) Release(ctx context.Context) error {
	handle.once.Do(func() {
		close(handle.stop)
		<-handle.done
		handle.conn.RemoveSignal(handle.signals)

		err := handle.release(ctx)
		if closeErr := handle.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			handle.err = fmt.Errorf("release screen lock: %w", err)
		}
	})
	return handle.err
}

func (handle *dbusLockHandle) watch() {
	defer close(handle.done)
	for {
		select {
		case <-handle.stop:
			return
		case sig, ok := <-handle.signals:
			if !ok || sig == nil {
				handle.log.Warn().Msg("session bus connection lost")
				close(handle.released)
				return
			}
			if handle.revoked(sig) {
				handle.log.Warn().Str("signal", sig.Name).Msg("screen lock revoked")
				close(handle.released)
				return
			}
		}
	}
}

func isServiceUnknown(err error) bool {
	var dbusErr dbus.Error
	if !asDBusError(errors.Unwrap(err), &dbusErr) {
		return false
	}
	return dbusErr.Name == "org.freedesktop.DBus.Error.ServiceUnknown"
}
