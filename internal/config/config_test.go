package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
	assert.Equal(t, "09:00", cfg.WorkDayStart)
	assert.Equal(t, "17:00", cfg.WorkDayEnd)
	assert.Equal(t, 60, cfg.Session.TTLMinutes)
	assert.NotEmpty(t, cfg.LLM.BaseURL)
	assert.NotEmpty(t, cfg.LLM.Model)
	assert.NotNil(t, cfg.ICS)
}

func TestNormalizeFillsZeroValues(t *testing.T) {
	cfg := &Config{Listen: ":9090", Timezone: "Europe/Berlin"}
	cfg.Normalize()

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, "09:00", cfg.WorkDayStart)
	assert.Equal(t, "17:00", cfg.WorkDayEnd)
	assert.Equal(t, 60, cfg.Session.TTLMinutes)
	assert.NotEmpty(t, cfg.LLM.Model)
	assert.NotNil(t, cfg.ICS)
}

func TestLoadMissingFileCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Timezone = "America/New_York"
	cfg.ICS = []string{"https://example.com/team.ics"}
	cfg.Session.Secret = "topsecret"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loaded.Timezone)
	assert.Equal(t, []string{"https://example.com/team.ics"}, loaded.ICS)
	assert.Equal(t, "topsecret", loaded.Session.Secret)
	assert.Equal(t, ":8080", loaded.Listen)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [broken"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
