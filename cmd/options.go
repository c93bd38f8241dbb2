package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"slidewake/internal/core/model"
	"slidewake/internal/logging"
	"slidewake/internal/storage"
	"slidewake/internal/ui/setup"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// options holds command-line overrides. Only flags the user set replace the
// values from the settings file.
type options struct {
	configPath  string
	title       string
	dwellPolicy string
	mediaDir    string
	statusAddr  string
	logLevel    string
	noGuard     bool
	windowed    bool
}

func (opts *options) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "settings file (default: user config dir)")
	flags.StringVar(&opts.logLevel, "log-level", "", "trace, debug, info, warn or error")

	local := cmd.Flags()
	local.StringVar(&opts.title, "title", "", "caption shown over every slide")
	local.StringVar(&opts.dwellPolicy, "dwell-policy", "", "first-slide or uniform")
	local.StringVar(&opts.mediaDir, "media-dir", "", "folder of images and videos to show")
	local.StringVar(&opts.statusAddr, "status-addr", "", "read-only status API address, empty to disable")
	local.BoolVar(&opts.noGuard, "no-guard", false, "let the display sleep")
	local.BoolVar(&opts.windowed, "windowed", false, "start in a window instead of fullscreen")
}

// settingsPath resolves the settings file location.
func (opts *options) settingsPath() (string, error) {
	if opts.configPath != "" {
		return filepath.Abs(opts.configPath)
	}
	return storage.SettingsPath(appName)
}

// apply merges flags and positional media references into settings.
func (opts *options) apply(cmd *cobra.Command, settings setup.Settings, args []string) (setup.Settings, error) {
	changed := func(name string) bool {
		flag := cmd.Flags().Lookup(name)
		return flag != nil && flag.Changed
	}

	if changed("title") {
		settings.Title = opts.title
	}
	if changed("dwell-policy") {
		switch policy := model.DwellPolicyName(opts.dwellPolicy); policy {
		case model.DwellFirstSlide, model.DwellUniform:
			settings.DwellPolicy = policy
		default:
			return settings, fmt.Errorf("unknown dwell policy %q", opts.dwellPolicy)
		}
	}
	if changed("media-dir") {
		dir, err := filepath.Abs(opts.mediaDir)
		if err != nil {
			return settings, fmt.Errorf("resolve media dir: %w", err)
		}
		settings.MediaDir = dir
	}
	if changed("status-addr") {
		settings.StatusAddr = opts.statusAddr
	}
	if changed("log-level") {
		if _, ok := logging.ParseLevel(opts.logLevel); !ok {
			return settings, fmt.Errorf("unknown log level %q", opts.logLevel)
		}
		settings.LogLevel = opts.logLevel
	}
	if opts.noGuard {
		settings.KeepAwake = false
	}
	if opts.windowed {
		settings.Fullscreen = false
	}
	if len(args) > 0 {
		settings.Media = append([]string(nil), args...)
	}
	return settings, nil
}

// loadSettings reads the settings file and applies flag overrides.
func (opts *options) loadSettings(cmd *cobra.Command, args []string) (setup.Settings, string, error) {
	path, err := opts.settingsPath()
	if err != nil {
		return setup.Settings{}, "", err
	}
	settings, err := storage.LoadSettings(path)
	if err != nil {
		return setup.Settings{}, "", err
	}
	settings, err = opts.apply(cmd, settings, args)
	if err != nil {
		return setup.Settings{}, "", err
	}
	return settings, path, nil
}

// newLogger builds the process logger. SLIDEWAKE_LOG_* variables win over
// the settings file, matching how the flags win over it.
func newLogger(settings setup.Settings) zerolog.Logger {
	logger := logging.NewFromEnv()
	if level, ok := logging.ParseLevel(settings.LogLevel); ok && !levelFromEnv() {
		logger = logger.Level(level)
	}
	return logger
}

func withLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return logging.WithContext(ctx, logger.With().Str("app", appName).Logger())
}

func levelFromEnv() bool {
	_, ok := logging.ParseLevel(os.Getenv("SLIDEWAKE_LOG_LEVEL"))
	return ok
}
