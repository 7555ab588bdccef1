// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "parley.log")

	logger, f, err := Open(path, "debug")
	require.NoError(t, err)
	require.NotNil(t, f)
	defer f.Close()

	logger.Info().Str("k", "v").Msg("hello")
	logger.Debug().Msg("details")
	logger.Trace().Msg("filtered out")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hello"`)
	assert.Contains(t, string(data), `"details"`)
	assert.NotContains(t, string(data), "filtered out")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestOpenOff(t *testing.T) {
	logger, f, err := Open(filepath.Join(t.TempDir(), "parley.log"), "off")
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Equal(t, zerolog.Disabled, logger.GetLevel())
}

func TestOpenInvalidLevel(t *testing.T) {
	_, _, err := Open(filepath.Join(t.TempDir(), "parley.log"), "loud")
	assert.Error(t, err)
}

func TestComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.log")
	logger, f, err := Open(path, "info")
	require.NoError(t, err)
	defer f.Close()

	l := Component(logger, "session")
	l.Info().Msg("ready")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"session"`)
}
