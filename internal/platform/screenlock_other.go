//go:build !linux && !darwin && !windows

package platform

import (
	"context"
	"fmt"

	"slidewake/internal/core/guard"
)

type unsupportedScreenLock struct{}

func newScreenLock(context.Context, string, string) guard.ScreenLock {
	return unsupportedScreenLock{}
}

func (unsupportedScreenLock) Acquire(context.Context) (guard.LockHandle, error) {
	return nil, fmt.Errorf("acquire screen lock: %w", guard.ErrScreenLockUnsupported)
}
