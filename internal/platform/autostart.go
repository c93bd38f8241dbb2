package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Service defines OS-specific helpers needed by the application.
type Service interface {
	GetConfigDir() (string, error)
	AppConfigDir(appName string) (string, error)
	EnableAutostart(appName, execPath string, args []string) error
	DisableAutostart(appName string) error
	AutostartEnabled(appName string) (bool, error)
}

type platformService struct{}

// NewService returns a platform-specific implementation.
func NewService() Service {
	return &platformService{}
}

// GetConfigDir returns the OS-standard configuration directory.
func (service *platformService) GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err == nil && configDir != "" {
		return configDir, nil
	}

	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		if err != nil {
			return "", fmt.Errorf("get config dir: %w", err)
		}
		return "", fmt.Errorf("get config dir: %w", homeErr)
	}

	return fallbackConfigDir(homeDir), nil
}

// AppConfigDir returns the per-application directory under the config dir,
// creating it when missing.
func (service *platformService) AppConfigDir(appName string) (string, error) {
	configDir, err := service.GetConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(configDir, slug(appName))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create app config dir: %w", err)
	}
	return dir, nil
}

func slug(appName string) string {
	name := strings.TrimSpace(appName)
	if name == "" {
		name = "slidewake"
	}
	name = strings.ToLower(name)
	return strings.ReplaceAll(name, " ", "-")
}
