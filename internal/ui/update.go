// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/avelinek/parley/internal/api"
	"github.com/avelinek/parley/internal/chat"
	"github.com/avelinek/parley/internal/model"
	"github.com/avelinek/parley/internal/ui/components"
	"github.com/avelinek/parley/internal/ui/styles"
)

// Update is the Bubble Tea message loop.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		chromeHeight := 6
		if !a.ready {
			a.viewport = viewport.New(msg.Width, msg.Height-chromeHeight)
			a.renderer = components.NewMessageRenderer(a.theme, msg.Width, a.cfg.UI.Markdown)
			a.ready = true
		} else {
			a.viewport.Width = msg.Width
			a.viewport.Height = msg.Height - chromeHeight
			a.renderer.SetWidth(msg.Width)
		}
		a.refreshViewport()
		return a, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return a, tea.Quit
		}
		switch a.view {
		case viewAuth:
			return a.updateAuth(msg)
		case viewChat:
			return a.updateChat(msg)
		case viewItems:
			return a.updateItems(msg)
		}

	case spinner.TickMsg:
		if a.authBusy || a.sending || a.itemsBusy {
			var cmd tea.Cmd
			a.spin, cmd = a.spin.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		// The tick only observes; CooldownActive is the one place
		// where a lapsed limit gets cleared.
		if a.chat.CooldownActive() {
			a.cooldown = a.chat.RemainingCooldown()
		} else if a.cooldown != 0 {
			a.cooldown = 0
			a.chatErr = ""
		}
		return a, tickEvery()

	case ConfigReloadedMsg:
		a.cfg = msg.Config
		a.theme = styles.NewTheme(msg.Config.UI.Theme)
		if a.ready {
			a.renderer = components.NewMessageRenderer(a.theme, a.width, a.cfg.UI.Markdown)
			a.refreshViewport()
		}
		return a, nil

	case sessionCheckedMsg:
		a.authBusy = false
		if msg.snap.IsAuthenticated() {
			return a, a.enterChat()
		}
		a.authErr = msg.snap.LastError
		return a, nil

	case authDoneMsg:
		a.authBusy = false
		if msg.err != nil {
			a.authErr = msg.err.Error()
			return a, nil
		}
		if msg.signup {
			// Signup never logs in; flip to the login form.
			a.mode = modeLogin
			a.authNote = msg.message
			if a.authNote == "" {
				a.authNote = "Account created. Log in to continue."
			}
			a.confirm.SetValue("")
			return a, nil
		}
		return a, a.enterChat()

	case sendDoneMsg:
		return a.handleSendDone(msg)

	case itemsLoadedMsg:
		a.itemsBusy = false
		if msg.err != nil {
			a.itemsErr = msg.err.Error()
			return a, a.checkAuthError(msg.err)
		}
		a.itemsErr = ""
		a.itemRows = msg.rows
		return a, nil

	case itemCreatedMsg:
		a.itemCreate = false
		a.itemName.SetValue("")
		a.itemDesc.SetValue("")
		if msg.err != nil {
			a.itemsErr = msg.err.Error()
			return a, a.checkAuthError(msg.err)
		}
		a.itemsBusy = true
		return a, a.loadItemsCmd()

	case historyClearedMsg:
		if msg.err != nil {
			a.chatErr = msg.err.Error()
			return a, a.checkAuthError(msg.err)
		}
		a.chatErr = ""
		a.refreshViewport()
		return a, nil

	case SessionExpiredMsg:
		a.chat.ClearSession()
		a.enterAuth("Session expired. Please log in again.")
		return a, nil
	}

	return a, nil
}

// checkAuthError drops to the login form when a request failed with a
// terminal auth error. The credential clearing already happened inside
// the API client.
func (a *App) checkAuthError(err error) tea.Cmd {
	if errors.Is(err, api.ErrAuthExpired) {
		a.session.HandleSessionExpired()
		a.chat.ClearSession()
		a.enterAuth("Session expired. Please log in again.")
	}
	return nil
}

func (a *App) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	fields := []*textinput.Model{&a.email, &a.password}
	if a.mode == modeSignup {
		fields = append(fields, &a.confirm)
	}

	switch msg.String() {
	case "tab", "down":
		a.authFocus = (a.authFocus + 1) % len(fields)
	case "shift+tab", "up":
		a.authFocus = (a.authFocus + len(fields) - 1) % len(fields)
	case "ctrl+s":
		if a.mode == modeLogin {
			a.mode = modeSignup
		} else {
			a.mode = modeLogin
		}
		a.authErr = ""
		a.authNote = ""
		a.authFocus = 0
	case "enter":
		if a.authBusy {
			return a, nil
		}
		if a.authFocus < len(fields)-1 {
			a.authFocus++
			break
		}
		a.authErr = ""
		a.authNote = ""
		a.authBusy = true
		if a.mode == modeSignup {
			return a, tea.Batch(a.spin.Tick,
				a.signupCmd(a.email.Value(), a.password.Value(), a.confirm.Value()))
		}
		return a, tea.Batch(a.spin.Tick,
			a.loginCmd(a.email.Value(), a.password.Value()))
	default:
		var cmd tea.Cmd
		*fields[a.authFocus], cmd = fields[a.authFocus].Update(msg)
		return a, cmd
	}

	for i, f := range fields {
		if i == a.authFocus {
			f.Focus()
		} else {
			f.Blur()
		}
	}
	return a, textinput.Blink
}

func (a *App) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Send):
		if a.sending {
			return a, nil
		}
		text := strings.TrimSpace(a.input.Value())
		if text == "" {
			return a, nil
		}
		a.input.SetValue("")
		a.chatErr = ""
		a.sending = true
		// Optimistic echo: the controller owns the real append and
		// rollback; the pending copy is display only.
		a.pending = text
		return a, tea.Batch(a.spin.Tick, a.sendCmd(text))

	case key.Matches(msg, keys.ToggleModel):
		next := model.ModelClaude
		if a.chat.Conversation().Model == model.ModelClaude {
			next = model.ModelGPT
		}
		if err := a.chat.SetModel(next); err != nil {
			a.chatErr = err.Error()
		}
		return a, nil

	case key.Matches(msg, keys.ClearChat):
		a.chat.ClearChat()
		a.chatErr = ""
		a.refreshViewport()
		return a, nil

	case key.Matches(msg, keys.ClearHistory):
		return a, a.clearHistoryCmd()

	case key.Matches(msg, keys.Items):
		a.view = viewItems
		a.itemsBusy = true
		a.input.Blur()
		return a, tea.Batch(a.spin.Tick, a.loadItemsCmd())

	case key.Matches(msg, keys.Logout):
		a.session.Logout()
		a.chat.ClearSession()
		a.enterAuth("Logged out.")
		return a, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)
	a.viewport, cmd = a.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (a *App) handleSendDone(msg sendDoneMsg) (tea.Model, tea.Cmd) {
	a.sending = false
	a.pending = ""
	if msg.err != nil {
		switch {
		case errors.Is(msg.err, api.ErrAuthExpired):
			return a, a.checkAuthError(msg.err)
		case errors.Is(msg.err, chat.ErrRateLimited):
			a.cooldown = a.chat.RemainingCooldown()
		default:
			a.chatErr = msg.err.Error()
		}
		a.refreshViewport()
		return a, nil
	}

	if msg.res.Outcome == chat.OutcomeRateLimited {
		a.cooldown = a.chat.RemainingCooldown()
	}
	a.chatErr = ""
	a.refreshViewport()
	return a, nil
}

func (a *App) updateItems(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.itemCreate {
		switch msg.String() {
		case "esc":
			a.itemCreate = false
			return a, nil
		case "tab", "shift+tab":
			a.itemFocus = 1 - a.itemFocus
			if a.itemFocus == 0 {
				a.itemName.Focus()
				a.itemDesc.Blur()
			} else {
				a.itemName.Blur()
				a.itemDesc.Focus()
			}
			return a, textinput.Blink
		case "enter":
			name := strings.TrimSpace(a.itemName.Value())
			if name == "" {
				a.itemsErr = "item name is required"
				return a, nil
			}
			a.itemsErr = ""
			return a, a.createItemCmd(name, strings.TrimSpace(a.itemDesc.Value()))
		}
		var cmd tea.Cmd
		if a.itemFocus == 0 {
			a.itemName, cmd = a.itemName.Update(msg)
		} else {
			a.itemDesc, cmd = a.itemDesc.Update(msg)
		}
		return a, cmd
	}

	switch msg.String() {
	case "esc", "q":
		a.view = viewChat
		a.input.Focus()
		return a, textinput.Blink
	case "r":
		a.itemsBusy = true
		return a, tea.Batch(a.spin.Tick, a.loadItemsCmd())
	case "n":
		a.itemCreate = true
		a.itemFocus = 0
		a.itemName.Focus()
		a.itemDesc.Blur()
		return a, textinput.Blink
	}
	return a, nil
}
