// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides the Bubble Tea front-end: the login/signup
// forms, the chat view, and the items dashboard.
package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/avelinek/parley/internal/chat"
	"github.com/avelinek/parley/internal/config"
	"github.com/avelinek/parley/internal/items"
	"github.com/avelinek/parley/internal/model"
	"github.com/avelinek/parley/internal/session"
	"github.com/avelinek/parley/internal/ui/components"
	"github.com/avelinek/parley/internal/ui/styles"
)

// view selects which screen the app is showing.
type view int

const (
	viewAuth view = iota
	viewChat
	viewItems
)

// authMode selects between the login and signup forms.
type authMode int

const (
	modeLogin authMode = iota
	modeSignup
)

const requestTimeout = 60 * time.Second

// App is the Bubble Tea model for the whole application.
type App struct {
	theme *styles.Theme
	cfg   *config.Config
	log   zerolog.Logger

	session *session.Controller
	chat    *chat.Controller
	items   *items.Service

	view   view
	width  int
	height int
	ready  bool

	// Auth form
	mode      authMode
	email     textinput.Model
	password  textinput.Model
	confirm   textinput.Model
	authFocus int
	authErr   string
	authNote  string
	authBusy  bool

	// Chat view
	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model
	renderer *components.MessageRenderer
	sending  bool
	pending  string // user text awaiting a server reply, display only
	chatErr  string
	cooldown time.Duration // zero when no cooldown is active

	// Items dashboard
	itemRows   []items.Item
	itemsBusy  bool
	itemsErr   string
	itemName   textinput.Model
	itemDesc   textinput.Model
	itemFocus  int
	itemCreate bool
}

// New assembles the application model.
func New(cfg *config.Config, sess *session.Controller, chatCtrl *chat.Controller, itemSvc *items.Service, log zerolog.Logger) *App {
	theme := styles.NewTheme(cfg.UI.Theme)

	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 254
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	confirm := textinput.New()
	confirm.Placeholder = "confirm password"
	confirm.EchoMode = textinput.EchoPassword
	confirm.EchoCharacter = '•'

	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 4000

	itemName := textinput.New()
	itemName.Placeholder = "name"
	itemDesc := textinput.New()
	itemDesc.Placeholder = "description"

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	return &App{
		theme:    theme,
		cfg:      cfg,
		log:      log.With().Str("component", "ui").Logger(),
		session:  sess,
		chat:     chatCtrl,
		items:    itemSvc,
		view:     viewAuth,
		email:    email,
		password: password,
		confirm:  confirm,
		input:    input,
		itemName: itemName,
		itemDesc: itemDesc,
		spin:     sp,
	}
}

// Init starts the session check and the recurring ticks.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.initializeSession(),
		a.spin.Tick,
		tickEvery(),
	)
}

// enterChat switches to the chat view after authentication.
func (a *App) enterChat() tea.Cmd {
	a.view = viewChat
	a.authErr = ""
	a.password.SetValue("")
	a.confirm.SetValue("")
	a.input.Focus()

	if _, err := a.chat.InitializeSession(); err != nil {
		a.chatErr = err.Error()
	}
	a.refreshViewport()
	return textinput.Blink
}

// enterAuth drops back to the login form.
func (a *App) enterAuth(note string) {
	a.view = viewAuth
	a.mode = modeLogin
	a.authNote = note
	a.authFocus = 0
	a.email.Focus()
	a.password.Blur()
	a.confirm.Blur()
	a.sending = false
}

// refreshViewport re-renders the conversation into the viewport and
// scrolls to the bottom.
func (a *App) refreshViewport() {
	if !a.ready || a.renderer == nil {
		return
	}
	conv := a.chat.Conversation()
	a.viewport.SetContent(a.renderer.RenderConversation(conv))
	a.viewport.GotoBottom()
}

// statusModel returns the label for the status bar.
func (a *App) statusModel() string {
	m := a.chat.Conversation().Model
	if m == model.ModelClaude {
		return "claude"
	}
	return "gpt"
}
