// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/avelinek/parley/internal/ui/components"
	"github.com/avelinek/parley/internal/util"
)

// View renders the current screen.
func (a *App) View() string {
	if !a.ready {
		return "starting..."
	}
	switch a.view {
	case viewAuth:
		return a.viewAuthForm()
	case viewItems:
		return a.viewItemsDashboard()
	default:
		return a.viewChatScreen()
	}
}

func (a *App) viewAuthForm() string {
	var b strings.Builder

	title := "Log in to parley"
	hint := "ctrl+s: create an account instead"
	if a.mode == modeSignup {
		title = "Create a parley account"
		hint = "ctrl+s: back to login"
	}
	b.WriteString(a.theme.Header.Render(title))
	b.WriteString("\n\n")

	if a.authNote != "" {
		b.WriteString(a.theme.Success.Render(a.authNote))
		b.WriteString("\n\n")
	}

	b.WriteString(a.theme.FormLabel.Render("Email"))
	b.WriteString("\n")
	b.WriteString(a.email.View())
	b.WriteString("\n\n")
	b.WriteString(a.theme.FormLabel.Render("Password"))
	b.WriteString("\n")
	b.WriteString(a.password.View())
	b.WriteString("\n")
	if a.mode == modeSignup {
		b.WriteString("\n")
		b.WriteString(a.theme.FormLabel.Render("Confirm password"))
		b.WriteString("\n")
		b.WriteString(a.confirm.View())
		b.WriteString("\n")
	}

	if a.authBusy {
		b.WriteString("\n" + a.spin.View() + a.theme.Subtitle.Render(" checking..."))
	}
	if a.authErr != "" {
		b.WriteString("\n" + a.theme.FormError.Render(a.authErr))
	}

	b.WriteString("\n\n")
	b.WriteString(a.theme.Muted.Render("enter: submit • tab: next field • " + hint))

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (a *App) viewChatScreen() string {
	var b strings.Builder

	b.WriteString(a.viewport.View())
	b.WriteString("\n")

	if a.pending != "" {
		b.WriteString(a.theme.Muted.Render("you › " + util.TruncateRunes(a.pending, 60)))
		b.WriteString("\n")
	}

	switch {
	case a.cooldown > 0:
		b.WriteString(components.CooldownBanner(a.theme, a.cooldown, a.width))
	case a.sending:
		b.WriteString(a.spin.View() + a.theme.Subtitle.Render(" thinking..."))
	case a.chatErr != "":
		b.WriteString(a.theme.ErrorBox.MaxWidth(a.width).Render(a.chatErr))
	default:
		b.WriteString(a.theme.InputPrompt.Render("› ") + a.input.View())
	}
	b.WriteString("\n")
	b.WriteString(a.statusBar())

	return b.String()
}

func (a *App) statusBar() string {
	conv := a.chat.Conversation()
	left := fmt.Sprintf("%s • %s • %d msgs",
		a.statusModel(),
		util.ShortID(conv.SessionID, 13),
		conv.Length,
	)

	help := strings.Join([]string{
		a.renderKey(keys.ToggleModel.Help().Key, keys.ToggleModel.Help().Desc),
		a.renderKey(keys.Items.Help().Key, keys.Items.Help().Desc),
		a.renderKey(keys.ClearHistory.Help().Key, keys.ClearHistory.Help().Desc),
		a.renderKey(keys.Logout.Help().Key, keys.Logout.Help().Desc),
	}, "  ")

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(help) - 2
	if gap < 1 {
		gap = 1
	}
	return a.theme.StatusBar.Width(a.width).Render(left + strings.Repeat(" ", gap) + help)
}

func (a *App) renderKey(k, desc string) string {
	return a.theme.StatusKey.Render(k) + " " + a.theme.Muted.Render(desc)
}

func (a *App) viewItemsDashboard() string {
	var b strings.Builder
	b.WriteString(a.theme.Header.Render("Items"))
	b.WriteString("\n\n")

	switch {
	case a.itemsBusy:
		b.WriteString(a.spin.View() + a.theme.Subtitle.Render(" loading..."))
	case a.itemCreate:
		b.WriteString(a.theme.FormLabel.Render("Name"))
		b.WriteString("\n" + a.itemName.View() + "\n\n")
		b.WriteString(a.theme.FormLabel.Render("Description"))
		b.WriteString("\n" + a.itemDesc.View() + "\n\n")
		b.WriteString(a.theme.Muted.Render("enter: create • esc: cancel"))
	default:
		b.WriteString(components.ItemsTable(a.theme, a.itemRows, a.width-4))
		b.WriteString("\n")
		b.WriteString(a.theme.Muted.Render("n: new item • r: reload • esc: back to chat"))
	}

	if a.itemsErr != "" {
		b.WriteString("\n\n" + a.theme.FormError.Render(a.itemsErr))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}
