// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth.go - login, signup and logout command handlers.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// HandleLogin prompts for credentials and establishes a session.
func HandleLogin(ctx context.Context, app *App) error {
	if !IsTTY() {
		return fmt.Errorf("login requires an interactive terminal")
	}

	snap := app.Session.Initialize(ctx)
	if snap.IsAuthenticated() {
		fmt.Println(successStyle.Render("Already logged in") +
			infoStyle.Render(" as "+snap.User.Email))
		return nil
	}

	email, err := promptLine("Email: ")
	if err != nil {
		return err
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	if err := app.Session.Login(ctx, email, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Println(successStyle.Render("Logged in") + infoStyle.Render(" as "+email))
	return nil
}

// HandleSignup prompts for credentials and registers a new account.
// No session is created: the backend wants the email confirmed before
// the first login.
func HandleSignup(ctx context.Context, app *App) error {
	if !IsTTY() {
		return fmt.Errorf("signup requires an interactive terminal")
	}

	email, err := promptLine("Email: ")
	if err != nil {
		return err
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return err
	}

	msg, err := app.Session.Signup(ctx, email, password, confirm)
	if err != nil {
		return fmt.Errorf("signup failed: %w", err)
	}

	if msg == "" {
		msg = "Account created. Check your email, then run: parley login"
	}
	fmt.Println(successStyle.Render(msg))
	return nil
}

// HandleLogout discards the stored session.
func HandleLogout(app *App) error {
	app.Session.Logout()
	app.Chat.ClearSession()
	fmt.Println(successStyle.Render("Logged out."))
	return nil
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echoing it.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}
