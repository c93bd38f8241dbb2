package model

import "time"

// DwellPolicyName selects how long each slide stays on screen.
type DwellPolicyName string

const (
	// DwellFirstSlide keeps the first slide longer than the rest.
	DwellFirstSlide DwellPolicyName = "first-slide"
	// DwellUniform gives every slide the same dwell.
	DwellUniform DwellPolicyName = "uniform"
)

// RotatorConfig contains runtime settings for the slide rotation state machine.
type RotatorConfig struct {
	Policy     DwellPolicyName
	FirstDwell time.Duration
	Dwell      time.Duration
}

// GuardConfig contains runtime settings for the display-awake watchdog.
type GuardConfig struct {
	Enabled          bool
	WatchdogInterval time.Duration
	Reason           string
}

// CacheConfig describes the offline media cache.
type CacheConfig struct {
	Path       string
	Generation string
	Media      []string
}

// PresentationConfig contains window and transition settings.
type PresentationConfig struct {
	Fullscreen      bool
	FadeDuration    time.Duration
	ZoomDuration    time.Duration
	BackdropOpacity float32
}
