// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - the plain-terminal chat REPL (parley chat).
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"

	"github.com/avelinek/parley/internal/api"
	"github.com/avelinek/parley/internal/chat"
	"github.com/avelinek/parley/internal/config"
	"github.com/avelinek/parley/internal/model"
	"github.com/avelinek/parley/internal/util"
)

// inputHistory wraps liner with a persistent history file.
type inputHistory struct {
	line *liner.State
	path string
}

func newInputHistory() *inputHistory {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	h := &inputHistory{line: line, path: filepath.Join(dir, "chat_history")}

	if f, err := os.Open(h.path); err == nil {
		_, _ = h.line.ReadHistory(f)
		f.Close()
	}
	return h
}

func (h *inputHistory) read(prompt string) (string, error) {
	input, err := h.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		h.line.AppendHistory(input)
	}
	return input, nil
}

func (h *inputHistory) close() {
	if f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
		_, _ = h.line.WriteHistory(f)
		f.Close()
	}
	h.line.Close()
}

// replySink renders assistant replies, with markdown when the output
// is a terminal and markdown is enabled.
type replySink struct {
	renderer *glamour.TermRenderer
}

func newReplySink(cfg *config.Config, plain bool) *replySink {
	if plain || !cfg.UI.Markdown || !IsStdoutTTY() {
		return &replySink{}
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(TerminalWidth()-2),
	)
	if err != nil {
		return &replySink{}
	}
	return &replySink{renderer: r}
}

func (s *replySink) print(content string) {
	if s.renderer != nil {
		if out, err := s.renderer.Render(content); err == nil {
			fmt.Print(strings.TrimRight(out, "\n") + "\n")
			return
		}
	}
	fmt.Println(content)
}

// HandleChat runs the terminal REPL for authenticated chat.
func HandleChat(ctx context.Context, app *App, args Args) error {
	snap := app.Session.Initialize(ctx)
	if !snap.IsAuthenticated() {
		return fmt.Errorf("not logged in; run: parley login")
	}

	if _, err := app.Chat.InitializeSession(); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	hist := newInputHistory()
	defer hist.close()
	sink := newReplySink(app.Config, args.Plain)

	if !args.Quiet {
		conv := app.Chat.Conversation()
		fmt.Println(titleStyle.Render("parley chat"))
		fmt.Println(infoStyle.Render(fmt.Sprintf("model %s, session %s. Type /quit to exit.",
			conv.Model, util.ShortID(conv.SessionID, 13))))
		fmt.Println()
	}

	// Ctrl+C during a request cancels just that request; at the prompt
	// liner reports ErrPromptAborted and the loop exits.
	var cancelMu sync.Mutex
	var cancelSend context.CancelFunc
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			cancelMu.Lock()
			if cancelSend != nil {
				cancelSend()
				cancelSend = nil
				fmt.Fprintln(os.Stderr, warnStyle.Render("[cancelled]"))
			}
			cancelMu.Unlock()
		}
	}()

	for {
		if app.Chat.CooldownActive() {
			fmt.Println(warnStyle.Render(
				"Message limit reached. Chat unlocks in " +
					renderRemaining(app.Chat.RemainingCooldown()) + "."))
		}

		input, err := hist.read(promptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C or Ctrl+D at the prompt.
			fmt.Println()
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			done, err := handleSlashCommand(ctx, app, input)
			if err != nil {
				fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
			}
			if done {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		msgCtx, cancel := context.WithCancel(ctx)
		cancelMu.Lock()
		cancelSend = cancel
		cancelMu.Unlock()

		err = processMessage(msgCtx, app, sink, input)

		cancelMu.Lock()
		cancelSend = nil
		cancelMu.Unlock()
		cancel()

		if err != nil {
			if errors.Is(err, api.ErrAuthExpired) {
				return fmt.Errorf("session expired; run: parley login")
			}
			fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		}
	}
}

func processMessage(ctx context.Context, app *App, sink *replySink, input string) error {
	res, err := app.Chat.SendMessage(ctx, input)
	if err != nil {
		if errors.Is(err, chat.ErrRateLimited) {
			fmt.Println(warnStyle.Render(err.Error()))
			return nil
		}
		return err
	}

	if res.Outcome == chat.OutcomeRateLimited {
		fmt.Println(warnStyle.Render(
			"Message limit reached. Chat unlocks in " +
				renderRemaining(time.Until(res.ExpiresAt)) + "."))
		return nil
	}

	sink.print(res.Reply.Content)
	return nil
}

// handleSlashCommand executes a /command. The bool result is true when
// the REPL should exit.
func handleSlashCommand(ctx context.Context, app *App, input string) (bool, error) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/clear":
		app.Chat.ClearChat()
		fmt.Println(infoStyle.Render("Conversation cleared."))
		return false, nil

	case "/reset":
		if err := app.Chat.ClearServerHistory(ctx); err != nil {
			return false, err
		}
		fmt.Println(infoStyle.Render("Server history cleared."))
		return false, nil

	case "/model":
		if len(fields) < 2 {
			fmt.Println(statusLine("Model", string(app.Chat.Conversation().Model)))
			return false, nil
		}
		m, err := model.ParseModelType(fields[1])
		if err != nil {
			return false, err
		}
		if err := app.Chat.SetModel(m); err != nil {
			return false, err
		}
		fmt.Println(infoStyle.Render("Switched to " + string(m) + "."))
		return false, nil

	case "/status":
		printStatus(app)
		return false, nil

	case "/help":
		fmt.Println(infoStyle.Render("/clear /reset /model [gpt|claude] /status /quit"))
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

// renderRemaining formats a cooldown duration as h/m/s text.
func renderRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
