// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - the parley status command.
package cli

import (
	"context"
	"fmt"

	"github.com/avelinek/parley/internal/util"
)

// HandleStatus shows the session, model and cooldown state.
func HandleStatus(ctx context.Context, app *App) error {
	app.Session.Initialize(ctx)
	printStatus(app)
	return nil
}

func printStatus(app *App) {
	fmt.Println(titleStyle.Render("parley status"))

	snap := app.Session.Snapshot()
	if snap.IsAuthenticated() {
		fmt.Println(statusLine("Session", successStyle.Render("authenticated")))
		fmt.Println(statusLine("Account", snap.User.Email))
	} else {
		fmt.Println(statusLine("Session", warnStyle.Render("logged out")))
		if snap.LastError != "" {
			fmt.Println(statusLine("Last error", snap.LastError))
		}
	}

	conv := app.Chat.Conversation()
	if conv.SessionID != "" {
		fmt.Println(statusLine("Chat session", util.ShortID(conv.SessionID, 13)))
	}
	fmt.Println(statusLine("Model", string(conv.Model)))
	fmt.Println(statusLine("Messages", fmt.Sprintf("%d", conv.Length)))

	if app.Chat.CooldownActive() {
		fmt.Println(statusLine("Cooldown",
			warnStyle.Render("unlocks in "+renderRemaining(app.Chat.RemainingCooldown()))))
	} else {
		fmt.Println(statusLine("Cooldown", "inactive"))
	}

	fmt.Println(statusLine("Backend", app.Config.API.BaseURL))
}
