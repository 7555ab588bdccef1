// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10, cfg.Chat.MaxMessages)
	assert.Equal(t, 4*time.Hour, cfg.Cooldown())
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Equal(t, "gpt", cfg.Chat.DefaultModel)
	assert.True(t, cfg.Store.Encrypt)
}

func TestLoadFromPathFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[api]
base_url = "http://localhost:8000/"

[chat]
default_model = "claude"
`), 0o600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	// The trailing slash is stripped; unset keys fall to defaults.
	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, "claude", cfg.Chat.DefaultModel)
	assert.Equal(t, 10, cfg.Chat.MaxMessages)
	assert.Equal(t, 240, cfg.Chat.CooldownMinutes)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromPathRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad model":    "[chat]\ndefault_model = \"gemini\"\n",
		"bad url":      "[api]\nbase_url = \"not a url\"\n",
		"bad level":    "[log]\nlevel = \"chatty\"\n",
		"bad theme":    "[ui]\ntheme = \"solarized\"\n",
		"low cap":      "[chat]\nmax_messages = 1\n",
		"long timeout": "[api]\ntimeout_secs = 9000\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := LoadFromPath(path)
			assert.Error(t, err)
		})
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[api]
base_url = "http://from-file:8000"

[chat]
max_messages = 20
`), 0o600))

	t.Setenv("PARLEY_API_URL", "http://from-env:9000")
	t.Setenv("PARLEY_MAX_MESSAGES", "6")
	t.Setenv("PARLEY_MODEL", "claude")
	t.Setenv("PARLEY_ENCRYPT_STORE", "false")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:9000", cfg.API.BaseURL)
	assert.Equal(t, 6, cfg.Chat.MaxMessages)
	assert.Equal(t, "claude", cfg.Chat.DefaultModel)
	assert.False(t, cfg.Store.Encrypt)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Chat.DefaultModel = "claude"
	cfg.Chat.CooldownMinutes = 60
	require.NoError(t, SaveTo(cfg, path))

	// Saved with restrictive permissions.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "claude", loaded.Chat.DefaultModel)
	assert.Equal(t, time.Hour, loaded.Cooldown())
}

func TestValidateErrorsMessage(t *testing.T) {
	cfg := Default()
	cfg.Chat.DefaultModel = "gemini"
	cfg.UI.Theme = "sepia"

	err := cfg.Validate()
	require.Error(t, err)
	var errs ValidateErrors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 2)
	assert.Contains(t, err.Error(), "chat.default_model")
	assert.Contains(t, err.Error(), "ui.theme")
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTo(Default(), path))

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, func(cfg *Config) { reloaded <- cfg })
	require.NoError(t, err)
	w.debounce = 50 * time.Millisecond
	require.NoError(t, w.Watch())
	defer w.Close()

	cfg := Default()
	cfg.Chat.DefaultModel = "claude"
	require.NoError(t, SaveTo(cfg, path))

	select {
	case got := <-reloaded:
		assert.Equal(t, "claude", got.Chat.DefaultModel)
	case <-time.After(3 * time.Second):
		t.Fatal("config reload not observed")
	}
}

func TestWatcherIgnoresInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTo(Default(), path))

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, func(cfg *Config) { reloaded <- cfg })
	require.NoError(t, err)
	w.debounce = 50 * time.Millisecond
	require.NoError(t, w.Watch())
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("not toml {{{"), 0o600))

	select {
	case <-reloaded:
		t.Fatal("invalid config should not reach the callback")
	case <-time.After(500 * time.Millisecond):
	}
}
