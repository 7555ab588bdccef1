// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application. It detects
// the terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Header   lipgloss.Style
	Subtitle lipgloss.Style

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	SystemNote      lipgloss.Style

	InputPrompt lipgloss.Style
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	Spinner     lipgloss.Style

	CooldownBanner lipgloss.Style
	ErrorBox       lipgloss.Style
	Success        lipgloss.Style

	FormLabel   lipgloss.Style
	FormError   lipgloss.Style
	FormFocused lipgloss.Style

	TableHeader lipgloss.Style
	TableRow    lipgloss.Style
	Muted       lipgloss.Style
}

// NewTheme creates a theme. pref is "dark", "light", or "auto"; auto
// asks the terminal.
func NewTheme(pref string) *Theme {
	switch strings.ToLower(pref) {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	}

	t := &Theme{
		IsDark:       lipgloss.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Indigo).
		Padding(0, 2)

	t.Subtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Teal).
		Padding(0, 1).
		MarginLeft(4)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Indigo).
		Padding(0, 1).
		MarginRight(4)

	t.SystemNote = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.InputPrompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(Surface).
		Padding(0, 1)

	t.StatusKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal)

	t.Spinner = lipgloss.NewStyle().Foreground(Indigo)

	t.CooldownBanner = lipgloss.NewStyle().
		Bold(true).
		Foreground(Amber).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(Amber).
		Padding(0, 2)

	t.ErrorBox = lipgloss.NewStyle().
		Foreground(Red).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Red).
		Padding(0, 1)

	t.Success = lipgloss.NewStyle().Foreground(Green)

	t.FormLabel = lipgloss.NewStyle().Foreground(TextSecondary)
	t.FormError = lipgloss.NewStyle().Foreground(Red)
	t.FormFocused = lipgloss.NewStyle().Bold(true).Foreground(Teal)

	t.TableHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(Indigo).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay)

	t.TableRow = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
}
