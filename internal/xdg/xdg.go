// Package xdg resolves the XDG Base Directory locations used by sessionkit.
// It falls back to the traditional ~/.config location when XDG_CONFIG_HOME is
// unset and creates directories with private permissions, since the config
// file names the identity project the CLI signs in to.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under the XDG base directories.
const AppName = "sessionkit"

// ConfigDir returns the XDG config directory for sessionkit.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/sessionkit when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
