// parley - terminal client for the parley chat backend.
//
// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/avelinek/parley/internal/cli"
	"github.com/avelinek/parley/internal/config"
	"github.com/avelinek/parley/internal/ui"
)

// Version information (set at build time)
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	// Help and version need no wiring.
	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage()
		return
	case cli.CmdVersion:
		cli.PrintVersion()
		return
	}

	app, err := cli.Build(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parley:", err)
		os.Exit(1)
	}
	defer app.Close()

	ctx := context.Background()

	switch cmd {
	case cli.CmdTUI:
		err = runTUI(app)
	case cli.CmdLogin:
		err = cli.HandleLogin(ctx, app)
	case cli.CmdSignup:
		err = cli.HandleSignup(ctx, app)
	case cli.CmdChat:
		err = cli.HandleChat(ctx, app, args)
	case cli.CmdItems:
		err = cli.HandleItems(ctx, app, args)
	case cli.CmdStatus:
		err = cli.HandleStatus(ctx, app)
	case cli.CmdConfig:
		err = cli.HandleConfig(app, args)
	case cli.CmdLogout:
		err = cli.HandleLogout(app)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "parley:", err)
		os.Exit(1)
	}
}

// runTUI launches the full-screen interface.
func runTUI(app *cli.App) error {
	m := ui.New(app.Config, app.Session, app.Chat, app.Items, app.Log)
	prog := tea.NewProgram(m, tea.WithAltScreen())

	// Auth expiry can surface from any background request; route it
	// into the update loop.
	app.Client.OnSessionExpired(func() {
		prog.Send(ui.SessionExpiredMsg{})
	})

	// Live-reload the config so theme and model changes on disk apply
	// without a restart.
	if path, err := config.Path(); err == nil {
		w, werr := config.NewWatcher(path, func(cfg *config.Config) {
			prog.Send(ui.ConfigReloadedMsg{Config: cfg})
		})
		if werr == nil {
			if err := w.Watch(); err == nil {
				defer w.Close()
			}
		}
	}

	_, err := prog.Run()
	return err
}
