//go:build darwin

package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"slidewake/internal/core/guard"
	"slidewake/internal/logging"

	"github.com/rs/zerolog"
)

// caffeinateLock holds a power assertion through a caffeinate child that
// exits together with this process.
type caffeinateLock struct {
	path string
	log  zerolog.Logger
}

func newScreenLock(ctx context.Context, _, _ string) guard.ScreenLock {
	lock := &caffeinateLock{log: logging.FromContext(ctx).With().Str("component", "screenlock").Logger()}
	if path, err := exec.LookPath("caffeinate"); err == nil {
		lock.path = path
	}
	return lock
}

func (lock *caffeinateLock) Acquire(ctx context.Context) (guard.LockHandle, error) {
	if lock.path == "" {
		return nil, fmt.Errorf("acquire screen lock: %w", guard.ErrScreenLockUnsupported)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire screen lock: %w", err)
	}

	command := exec.Command(lock.path, "-d", "-i", "-w", strconv.Itoa(os.Getpid()))
	if err := command.Start(); err != nil {
		return nil, fmt.Errorf("acquire screen lock: start caffeinate: %w", err)
	}

	handle := &caffeinateHandle{
		command:  command,
		released: make(chan struct{}),
		exited:   make(chan struct{}),
	}
	go handle.wait(lock.log)
	lock.log.Debug().Int("pid", command.Process.Pid).Msg("caffeinate started")
	return handle, nil
}

type caffeinateHandle struct {
	command  *exec.Cmd
	released chan struct{}
	exited   chan struct{}

	mu       sync.Mutex
	stopping bool
	once     sync.Once
	err      error
}

func (handle *caffeinateHandle) Released() <-chan struct{} {
	return handle.released
}

func (handle *caffeinateHandle) Release(ctx context.Context) error {
	handle.once.Do(func() {
		handle.mu.Lock()
		handle.stopping = true
		handle.mu.Unlock()

		if err := handle.command.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			handle.err = fmt.Errorf("release screen lock: %w", err)
		}
		select {
		case <-handle.exited:
		case <-ctx.Done():
			if handle.err == nil {
				handle.err = fmt.Errorf("release screen lock: %w", ctx.Err())
			}
		}
	})
	return handle.err
}

func (handle *caffeinateHandle) wait(log zerolog.Logger) {
	err := handle.command.Wait()
	close(handle.exited)

	handle.mu.Lock()
	stopping := handle.stopping
	handle.mu.Unlock()
	if stopping {
		return
	}
	log.Warn().Err(err).Msg("caffeinate exited")
	close(handle.released)
}
