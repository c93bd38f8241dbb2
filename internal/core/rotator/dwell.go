package rotator

import (
	"time"

	"slidewake/internal/core/model"
)

const (
	DefaultFirstDwell = 10 * time.Second
	DefaultDwell      = 8 * time.Second
)

// DwellPolicy decides how long the slide at index stays active.
type DwellPolicy interface {
	Dwell(index int) time.Duration
}

// FirstSlideDwell holds index 0 for First and every other index for Rest.
type FirstSlideDwell struct {
	First time.Duration
	Rest  time.Duration
}

// Dwell implements DwellPolicy.
func (policy FirstSlideDwell) Dwell(index int) time.Duration {
	if index == 0 {
		return positiveOr(policy.First, DefaultFirstDwell)
	}
	return positiveOr(policy.Rest, DefaultDwell)
}

// UniformDwell holds every slide for the same duration.
type UniformDwell struct {
	Every time.Duration
}

// Dwell implements DwellPolicy.
func (policy UniformDwell) Dwell(int) time.Duration {
	return positiveOr(policy.Every, DefaultDwell)
}

// PolicyFromConfig builds the dwell policy named in config.
// Unknown names fall back to FirstSlideDwell.
func PolicyFromConfig(config model.RotatorConfig) DwellPolicy {
	if config.Policy == model.DwellUniform {
		return UniformDwell{Every: config.Dwell}
	}
	return FirstSlideDwell{First: config.FirstDwell, Rest: config.Dwell}
}

// CycleDuration is the time a cold-started rotator needs to return to index 0.
func CycleDuration(policy DwellPolicy, length int) time.Duration {
	if length < 2 {
		return 0
	}
	var total time.Duration
	for index := 0; index < length; index++ {
		total += policy.Dwell(index)
	}
	return total
}

func positiveOr(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}
