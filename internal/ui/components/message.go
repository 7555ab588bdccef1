// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/avelinek/parley/internal/model"
	"github.com/avelinek/parley/internal/ui/styles"
)

// MessageRenderer turns conversation messages into styled blocks for
// the chat viewport.
type MessageRenderer struct {
	theme    *styles.Theme
	markdown *Markdown
	width    int
	useMD    bool
}

// NewMessageRenderer creates a renderer for the given width.
func NewMessageRenderer(theme *styles.Theme, width int, useMarkdown bool) *MessageRenderer {
	return &MessageRenderer{
		theme:    theme,
		markdown: NewMarkdown(bubbleWidth(width)),
		width:    width,
		useMD:    useMarkdown,
	}
}

// SetWidth resizes the renderer.
func (r *MessageRenderer) SetWidth(width int) {
	if width == r.width {
		return
	}
	r.width = width
	r.markdown = NewMarkdown(bubbleWidth(width))
}

// Render returns the styled block for one message.
func (r *MessageRenderer) Render(msg model.Message) string {
	ts := r.theme.Muted.Render(msg.Timestamp.Format("15:04"))

	switch msg.Role {
	case model.RoleUser:
		label := r.theme.StatusKey.Render("you") + " " + ts
		body := WrapText(msg.Content, bubbleWidth(r.width))
		return label + "\n" + r.theme.UserBubble.MaxWidth(r.width).Render(body)

	case model.RoleAssistant:
		label := lipgloss.NewStyle().Bold(true).Foreground(styles.Indigo).Render("assistant") + " " + ts
		body := msg.Content
		if r.useMD {
			body = r.markdown.Render(body)
		} else {
			body = ParseCodeBlocks(WrapText(body, bubbleWidth(r.width)), bubbleWidth(r.width))
		}
		return label + "\n" + r.theme.AssistantBubble.MaxWidth(r.width).Render(body)

	default:
		return r.theme.SystemNote.Render(msg.Content)
	}
}

// RenderConversation renders all messages separated by blank lines.
func (r *MessageRenderer) RenderConversation(conv model.Conversation) string {
	if len(conv.Messages) == 0 {
		return r.theme.SystemNote.Render("No messages yet. Say something.")
	}
	blocks := make([]string, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		blocks = append(blocks, r.Render(msg))
	}
	return strings.Join(blocks, "\n\n")
}

// CooldownBanner renders the rate-limit banner with a countdown.
func CooldownBanner(theme *styles.Theme, remaining time.Duration, width int) string {
	remaining = remaining.Round(time.Second)
	h := int(remaining.Hours())
	m := int(remaining.Minutes()) % 60
	s := int(remaining.Seconds()) % 60
	text := fmt.Sprintf("Message limit reached. Chat unlocks in %02d:%02d:%02d", h, m, s)
	return theme.CooldownBanner.MaxWidth(width).Render(text)
}

// WrapText wraps text at width using display cell widths, so wide
// runes do not overflow the bubble.
func WrapText(text string, width int) string {
	if width < 10 {
		width = 10
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if runewidth.StringWidth(line) <= width {
			out = append(out, line)
			continue
		}
		var cur strings.Builder
		curWidth := 0
		for _, word := range strings.Fields(line) {
			w := runewidth.StringWidth(word)
			if curWidth > 0 && curWidth+1+w > width {
				out = append(out, cur.String())
				cur.Reset()
				curWidth = 0
			}
			if curWidth > 0 {
				cur.WriteByte(' ')
				curWidth++
			}
			cur.WriteString(word)
			curWidth += w
		}
		if cur.Len() > 0 {
			out = append(out, cur.String())
		}
	}
	return strings.Join(out, "\n")
}

func bubbleWidth(width int) int {
	w := width - 8
	if w < 20 {
		w = 20
	}
	return w
}
