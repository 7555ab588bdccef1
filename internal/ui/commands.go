// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/avelinek/parley/internal/chat"
	"github.com/avelinek/parley/internal/config"
	"github.com/avelinek/parley/internal/items"
	"github.com/avelinek/parley/internal/session"
)

// Messages produced by async commands.

type sessionCheckedMsg struct {
	snap session.Snapshot
}

type authDoneMsg struct {
	signup  bool
	message string
	err     error
}

type sendDoneMsg struct {
	res *chat.SendResult
	err error
}

type itemsLoadedMsg struct {
	rows []items.Item
	err  error
}

type itemCreatedMsg struct {
	err error
}

type historyClearedMsg struct {
	err error
}

// SessionExpiredMsg is sent from outside the program when the API
// client declares the session terminally expired.
type SessionExpiredMsg struct{}

// ConfigReloadedMsg is sent from outside the program when the config
// file changes on disk and reloads cleanly.
type ConfigReloadedMsg struct {
	Config *config.Config
}

type tickMsg time.Time

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a *App) initializeSession() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return sessionCheckedMsg{snap: a.session.Initialize(ctx)}
	}
}

func (a *App) loginCmd(email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return authDoneMsg{err: a.session.Login(ctx, email, password)}
	}
}

func (a *App) signupCmd(email, password, confirm string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		msg, err := a.session.Signup(ctx, email, password, confirm)
		return authDoneMsg{signup: true, message: msg, err: err}
	}
}

func (a *App) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := a.chat.SendMessage(ctx, text)
		return sendDoneMsg{res: res, err: err}
	}
}

func (a *App) loadItemsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		rows, err := a.items.List(ctx)
		return itemsLoadedMsg{rows: rows, err: err}
	}
}

func (a *App) createItemCmd(name, desc string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := a.items.Create(ctx, items.Item{Name: name, Description: desc})
		return itemCreatedMsg{err: err}
	}
}

func (a *App) clearHistoryCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return historyClearedMsg{err: a.chat.ClearServerHistory(ctx)}
	}
}
