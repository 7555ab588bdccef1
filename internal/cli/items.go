// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// items.go - the parley items command.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/avelinek/parley/internal/items"
)

// HandleItems lists items or creates one.
//
//	parley items               list
//	parley items list          list
//	parley items new NAME [description...]
func HandleItems(ctx context.Context, app *App, args Args) error {
	snap := app.Session.Initialize(ctx)
	if !snap.IsAuthenticated() {
		return fmt.Errorf("not logged in; run: parley login")
	}

	sub := "list"
	if len(args.Raw) > 0 {
		sub = strings.ToLower(args.Raw[0])
	}

	switch sub {
	case "list", "ls":
		return listItems(ctx, app)
	case "new", "create", "add":
		if len(args.Raw) < 2 {
			return fmt.Errorf("usage: parley items new NAME [description...]")
		}
		name := args.Raw[1]
		desc := strings.Join(args.Raw[2:], " ")
		created, err := app.Items.Create(ctx, items.Item{Name: name, Description: desc})
		if err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("Created item #%d %s", created.ID, created.Name)))
		return nil
	default:
		return fmt.Errorf("unknown items subcommand %q (want list or new)", sub)
	}
}

func listItems(ctx context.Context, app *App) error {
	rows, err := app.Items.List(ctx)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("Items"))
	if len(rows) == 0 {
		fmt.Println(infoStyle.Render("No items yet. Create one with: parley items new NAME"))
		return nil
	}

	nameW := 4
	for _, it := range rows {
		if w := runewidth.StringWidth(it.Name); w > nameW {
			nameW = w
		}
	}
	if nameW > 32 {
		nameW = 32
	}

	fmt.Println(infoStyle.Render(fmt.Sprintf("%-5s %s  %s", "ID", runewidth.FillRight("NAME", nameW), "DESCRIPTION")))
	for _, it := range rows {
		name := runewidth.Truncate(it.Name, nameW, "…")
		fmt.Printf("%-5d %s  %s\n", it.ID, runewidth.FillRight(name, nameW), it.Description)
	}
	return nil
}
