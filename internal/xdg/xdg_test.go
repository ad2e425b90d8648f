package xdg_test

import (
	"path/filepath"
	"testing"

	"github.com/programme-lv/subseries/internal/xdg"
	"github.com/stretchr/testify/assert"
)

func TestAppCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/var/cache/research")
	assert.Equal(t, filepath.Join("/var/cache/research", "subseries"), xdg.AppCacheDir("subseries"))

	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "/home/analyst")
	assert.Equal(t, filepath.Join("/home/analyst", ".cache", "subseries"), xdg.AppCacheDir("subseries"))
}
