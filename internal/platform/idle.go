package platform

import (
	"errors"
	"time"
)

// ErrIdleUnsupported indicates the host cannot report time since last input.
var ErrIdleUnsupported = errors.New("idle detection unsupported")

// IdleProvider returns the duration since last user input.
type IdleProvider interface {
	IdleDuration() (time.Duration, error)
}

// NewIdleProvider returns a platform-specific idle provider.
func NewIdleProvider() IdleProvider {
	return newIdleProvider()
}
