package platform

import (
	"context"

	"slidewake/internal/core/guard"
)

// NewScreenLock returns the host's "keep screen on" primitive. appName and
// reason are shown by hosts that list active inhibitors.
func NewScreenLock(ctx context.Context, appName, reason string) guard.ScreenLock {
	return newScreenLock(ctx, appName, reason)
}
