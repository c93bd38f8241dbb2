package setup

import (
	"strings"
	"time"

	"slidewake/internal/cache"
	"slidewake/internal/core/guard"
	"slidewake/internal/core/model"
	"slidewake/internal/core/rotator"
)

// Settings defines editable slideshow preferences.
type Settings struct {
	Title    string
	MediaDir string
	Media    []string

	DwellPolicy model.DwellPolicyName
	FirstDwell  time.Duration
	Dwell       time.Duration

	KeepAwake  bool
	Fullscreen bool

	StatusAddr      string
	CacheGeneration string
	LogLevel        string
}

// DefaultSettings returns default settings for Slidewake.
func DefaultSettings() Settings {
	return Settings{
		DwellPolicy:     model.DwellFirstSlide,
		FirstDwell:      rotator.DefaultFirstDwell,
		Dwell:           rotator.DefaultDwell,
		KeepAwake:       true,
		Fullscreen:      true,
		CacheGeneration: cache.DefaultGeneration,
		LogLevel:        "info",
	}
}

// RotatorConfig converts settings to RotatorConfig.
func (settings Settings) RotatorConfig() model.RotatorConfig {
	return model.RotatorConfig{
		Policy:     settings.DwellPolicy,
		FirstDwell: settings.FirstDwell,
		Dwell:      settings.Dwell,
	}
}

// GuardConfig converts settings to GuardConfig.
func (settings Settings) GuardConfig() model.GuardConfig {
	return model.GuardConfig{
		Enabled:          settings.KeepAwake,
		WatchdogInterval: guard.DefaultInterval,
		Reason:           "Slideshow is playing",
	}
}

// CacheConfig converts settings to CacheConfig. Only remote media is cached.
func (settings Settings) CacheConfig(path string) model.CacheConfig {
	var remote []string
	for _, ref := range settings.Media {
		if isRemote(ref) {
			remote = append(remote, ref)
		}
	}
	return model.CacheConfig{
		Path:       path,
		Generation: settings.CacheGeneration,
		Media:      remote,
	}
}

// PresentationConfig converts settings to PresentationConfig.
func (settings Settings) PresentationConfig() model.PresentationConfig {
	return model.PresentationConfig{
		Fullscreen:      settings.Fullscreen,
		FadeDuration:    time.Second,
		ZoomDuration:    10 * time.Second,
		BackdropOpacity: 0.3,
	}
}

func isRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
