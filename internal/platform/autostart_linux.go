//go:build linux

package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (service *platformService) EnableAutostart(appName, execPath string, args []string) error {
	if appName == "" {
		return fmt.Errorf("enable autostart: app name is empty")
	}
	if execPath == "" {
		return fmt.Errorf("enable autostart: exec path is empty")
	}

	configDir, err := service.GetConfigDir()
	if err != nil {
		return fmt.Errorf("enable autostart: %w", err)
	}

	autostartDir := filepath.Join(configDir, "autostart")
	if err := os.MkdirAll(autostartDir, 0o755); err != nil {
		return fmt.Errorf("enable autostart: create autostart dir: %w", err)
	}

	desktopFilePath := filepath.Join(autostartDir, slug(appName)+".desktop")
	if err := os.WriteFile(desktopFilePath, []byte(buildDesktopEntry(appName, execPath, args)), 0o644); err != nil {
		return fmt.Errorf("enable autostart: write desktop entry: %w", err)
	}

	return nil
}

func (service *platformService) DisableAutostart(appName string) error {
	if appName == "" {
		return fmt.Errorf("disable autostart: app name is empty")
	}

	configDir, err := service.GetConfigDir()
	if err != nil {
		return fmt.Errorf("disable autostart: %w", err)
	}

	desktopFilePath := filepath.Join(configDir, "autostart", slug(appName)+".desktop")
	if err := os.Remove(desktopFilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("disable autostart: remove desktop entry: %w", err)
	}

	return nil
}

func (service *platformService) AutostartEnabled(appName string) (bool, error) {
	configDir, err := service.GetConfigDir()
	if err != nil {
		return false, fmt.Errorf("autostart enabled: %w", err)
	}
	_, err = os.Stat(filepath.Join(configDir, "autostart", slug(appName)+".desktop"))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("autostart enabled: %w", err)
	}
	return true, nil
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config")
}

// buildDesktopEntry renders an XDG autostart entry. Exec arguments are
// quoted per the Desktop Entry rules.
func buildDesktopEntry(appName, execPath string, args []string) string {
	fields := make([]string, 0, len(args)+1)
	fields = append(fields, desktopQuote(execPath))
	for _, arg := range args {
		fields = append(fields, desktopQuote(arg))
	}

	return fmt.Sprintf(
		`[Desktop Entry]
Type=Application
Name=%s
Exec=%s
X-GNOME-Autostart-enabled=true
Terminal=false
`,
		appName,
		strings.Join(fields, " "),
	)
}

func desktopQuote(value string) string {
	if value != "" && !strings.ContainsAny(value, " \t\"'\\$`") {
		return value
	}
	replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)
	return `"` + replacer.Replace(value) + `"`
}
