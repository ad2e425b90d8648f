package xdg

import (
	"os"
	"path/filepath"
)

// CacheHome returns the base directory for user-specific cached data
func CacheHome() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return dir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
		if homeDir == "" {
			return filepath.Join(os.TempDir(), "cache")
		}
	}
	return filepath.Join(homeDir, ".cache")
}

// AppCacheDir returns the application-specific cache directory
func AppCacheDir(appName string) string {
	return filepath.Join(CacheHome(), appName)
}
