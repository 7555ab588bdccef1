// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the application logger.
//
// The TUI owns stdout, so logs go to a file under the config
// directory. Everything takes a zerolog.Logger by value; component
// loggers are derived with Component.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Open creates a file-backed logger at the given path with the given
// level ("trace" through "error", or "off"). The caller closes the
// returned file on shutdown.
func Open(path, level string) (zerolog.Logger, *os.File, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	if lvl == zerolog.Disabled {
		return zerolog.Nop(), nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := zerolog.New(f).Level(lvl).With().Timestamp().Logger()
	return logger, f, nil
}

// Console creates a human-readable stderr logger, for plain-mode
// commands that do not own the terminal.
func Console(level string) zerolog.Logger {
	lvl, err := parseLevel(level)
	if err != nil || lvl == zerolog.Disabled {
		return zerolog.Nop()
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Component derives a logger tagged with a component name.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

func parseLevel(level string) (zerolog.Level, error) {
	if strings.EqualFold(level, "off") {
		return zerolog.Disabled, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Disabled, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}
