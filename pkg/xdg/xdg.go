// pkg/xdg/xdg.go

package xdg

import (
	"os"
	"path/filepath"
)

// GetEnvOrDefault returns the value of envVar, or fallback when it is unset or empty.
func GetEnvOrDefault(envVar, fallback string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return fallback
}

// StatePath locates file under $XDG_STATE_HOME/app, defaulting to ~/.local/state/app.
func StatePath(app, file string) string {
	base := GetEnvOrDefault("XDG_STATE_HOME", filepath.Join(os.Getenv("HOME"), ".local", "state"))
	return filepath.Join(base, app, file)
}

// ConfigPath locates file under $XDG_CONFIG_HOME/app, defaulting to ~/.config/app.
func ConfigPath(app, file string) string {
	base := GetEnvOrDefault("XDG_CONFIG_HOME", filepath.Join(os.Getenv("HOME"), ".config"))
	return filepath.Join(base, app, file)
}

// EnsureDir creates the parent directory of path.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), DirPermStandard)
}
