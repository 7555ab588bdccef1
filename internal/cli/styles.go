// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - shared lipgloss styles for non-TUI command output.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

func init() {
	lipgloss.SetColorProfile(ColorProfile())
}

var (
	// titleStyle is used for command headers.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")) // indigo

	// labelStyle is used for field labels in status output.
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(16)

	// valueStyle is used for field values.
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// successStyle marks completed operations.
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	// errorStyle marks failures.
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// warnStyle marks cooldowns and degraded states.
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// promptStyle is the REPL prompt.
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	// infoStyle is for secondary information lines.
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

func statusLine(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}
