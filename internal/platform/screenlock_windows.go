//go:build windows

package platform

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"slidewake/internal/core/guard"
)

const (
	esSystemRequired  = 0x00000001
	esDisplayRequired = 0x00000002
	esContinuous      = 0x80000000
)

var procSetThreadExecutionState = kernel32.NewProc("SetThreadExecutionState")

// executionStateLock keeps the display on through SetThreadExecutionState.
// The state belongs to the calling thread, so each handle pins one.
type executionStateLock struct{}

func newScreenLock(context.Context, string, string) guard.ScreenLock {
	return executionStateLock{}
}

func (executionStateLock) Acquire(ctx context.Context) (guard.LockHandle, error) {
	if err := procSetThreadExecutionState.Find(); err != nil {
		return nil, fmt.Errorf("acquire screen lock: %w", guard.ErrScreenLockUnsupported)
	}

	handle := &executionStateHandle{
		released: make(chan struct{}),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	started := make(chan error, 1)
	go handle.hold(started)

	select {
	case err := <-started:
		if err != nil {
			return nil, fmt.Errorf("acquire screen lock: %w", err)
		}
		return handle, nil
	case <-ctx.Done():
		close(handle.stop)
		return nil, fmt.Errorf("acquire screen lock: %w", ctx.Err())
	}
}

type executionStateHandle struct {
	released chan struct{}
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// Released never fires: the execution state is not revocable.
func (handle *executionStateHandle) Released() <-chan struct{} {
	return handle.released
}

func (handle *executionStateHandle) Release(ctx context.Context) error {
	var err error
	handle.once.Do(func() {
		close(handle.stop)
		select {
		case <-handle.done:
		case <-ctx.Done():
			err = fmt.Errorf("release screen lock: %w", ctx.Err())
		}
	})
	return err
}

func (handle *executionStateHandle) hold(started chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(handle.done)

	previous, _, callErr := procSetThreadExecutionState.Call(uintptr(esContinuous | esSystemRequired | esDisplayRequired))
	if previous == 0 {
		started <- fmt.Errorf("set thread execution state: %w", callErr)
		return
	}
	started <- nil

	<-handle.stop
	_, _, _ = procSetThreadExecutionState.Call(uintptr(esContinuous))
}
