// Package config holds configuration helpers for the ledgersort CLI.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a user-supplied file path: a leading ~ becomes the
// home directory and $VAR references are expanded from the environment.
// The path is returned unchanged when the home directory cannot be
// determined.
func ExpandPath(path string) string {
	switch {
	case path == "":
		return path
	case path == "~":
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	case strings.HasPrefix(path, "~"+string(os.PathSeparator)) || strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}
