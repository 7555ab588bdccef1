// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders assistant replies as terminal markdown with a
// glamour renderer, falling back to the raw text plus chroma code
// blocks when rendering is unavailable.
type Markdown struct {
	renderer *glamour.TermRenderer
	width    int
}

// NewMarkdown creates a markdown renderer wrapping at width.
func NewMarkdown(width int) *Markdown {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		r = nil
	}
	return &Markdown{renderer: r, width: width}
}

// Render returns the rendered content, or a best-effort fallback.
func (m *Markdown) Render(content string) string {
	if m.renderer == nil {
		return ParseCodeBlocks(content, m.width)
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return ParseCodeBlocks(content, m.width)
	}
	return strings.TrimRight(out, "\n")
}
