package animation

import (
	"math"
	"time"
)

// Curve maps linear progress in [0, 1] to eased progress.
type Curve func(float32) float32

// Linear keeps progress as is.
func Linear(progress float32) float32 {
	return progress
}

// EaseInOut is a sine ease, slow at both ends.
func EaseInOut(progress float32) float32 {
	return float32(-(math.Cos(math.Pi*float64(progress)) - 1) / 2)
}

// Spec defines a single tween.
type Spec struct {
	Duration time.Duration
	Curve    Curve
	// Repeat restarts the tween from zero each time it completes; Done is never called.
	Repeat bool
	// Update receives eased progress from the engine goroutine.
	Update func(float32)
	Done   func()
}

// Lerp interpolates between from and to.
func Lerp(from, to, progress float32) float32 {
	return from + (to-from)*progress
}

func (spec Spec) progress(elapsed time.Duration) float32 {
	if spec.Duration <= 0 || elapsed >= spec.Duration {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	return float32(elapsed) / float32(spec.Duration)
}

func (spec Spec) curve() Curve {
	if spec.Curve == nil {
		return Linear
	}
	return spec.Curve
}
