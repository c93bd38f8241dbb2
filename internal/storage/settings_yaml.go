package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"slidewake/internal/core/model"
	"slidewake/internal/logging"
	"slidewake/internal/ui/setup"

	"gopkg.in/yaml.v3"
)

const settingsFileName = "settings.yaml"

const maxDwellSeconds = 3600

type yamlSettings struct {
	Title           string   `yaml:"title,omitempty"`
	MediaDir        string   `yaml:"media_dir,omitempty"`
	Media           []string `yaml:"media,omitempty"`
	DwellPolicy     string   `yaml:"dwell_policy,omitempty"`
	FirstDwellSecs  int      `yaml:"first_dwell_seconds,omitempty"`
	DwellSecs       int      `yaml:"dwell_seconds,omitempty"`
	KeepAwake       *bool    `yaml:"keep_awake,omitempty"`
	Fullscreen      *bool    `yaml:"fullscreen,omitempty"`
	StatusAddr      string   `yaml:"status_addr,omitempty"`
	CacheGeneration string   `yaml:"cache_generation,omitempty"`
	LogLevel        string   `yaml:"log_level,omitempty"`
}

// SettingsPath returns the default settings file location for appName.
func SettingsPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, settingsFileName), nil
}

// LoadSettings reads slideshow preferences from the YAML file at path.
// If the file does not exist, default settings are returned. Out-of-range
// values keep their defaults.
func LoadSettings(path string) (setup.Settings, error) {
	settings := setup.DefaultSettings()

	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

// SaveSettings writes slideshow preferences to the YAML file at path.
func SaveSettings(path string, settings setup.Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	keepAwake := settings.KeepAwake
	fullscreen := settings.Fullscreen
	fileData := yamlSettings{
		Title:           settings.Title,
		MediaDir:        settings.MediaDir,
		Media:           settings.Media,
		DwellPolicy:     string(settings.DwellPolicy),
		FirstDwellSecs:  int(settings.FirstDwell / time.Second),
		DwellSecs:       int(settings.Dwell / time.Second),
		KeepAwake:       &keepAwake,
		Fullscreen:      &fullscreen,
		StatusAddr:      settings.StatusAddr,
		CacheGeneration: settings.CacheGeneration,
		LogLevel:        settings.LogLevel,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	// Write then rename so a crash never leaves a truncated file behind.
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}

	return nil
}

func applyYamlSettings(settings *setup.Settings, fileData yamlSettings) {
	settings.Title = strings.TrimSpace(fileData.Title)
	settings.MediaDir = fileData.MediaDir
	settings.Media = append([]string(nil), fileData.Media...)

	switch model.DwellPolicyName(fileData.DwellPolicy) {
	case model.DwellFirstSlide, model.DwellUniform:
		settings.DwellPolicy = model.DwellPolicyName(fileData.DwellPolicy)
	}
	if fileData.FirstDwellSecs > 0 && fileData.FirstDwellSecs <= maxDwellSeconds {
		settings.FirstDwell = time.Duration(fileData.FirstDwellSecs) * time.Second
	}
	if fileData.DwellSecs > 0 && fileData.DwellSecs <= maxDwellSeconds {
		settings.Dwell = time.Duration(fileData.DwellSecs) * time.Second
	}

	if fileData.KeepAwake != nil {
		settings.KeepAwake = *fileData.KeepAwake
	}
	if fileData.Fullscreen != nil {
		settings.Fullscreen = *fileData.Fullscreen
	}

	settings.StatusAddr = strings.TrimSpace(fileData.StatusAddr)
	if fileData.CacheGeneration != "" {
		settings.CacheGeneration = fileData.CacheGeneration
	}
	if _, ok := logging.ParseLevel(fileData.LogLevel); ok {
		settings.LogLevel = strings.ToLower(strings.TrimSpace(fileData.LogLevel))
	}
}
