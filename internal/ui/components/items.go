// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"

	"github.com/mattn/go-runewidth"

	"github.com/avelinek/parley/internal/items"
	"github.com/avelinek/parley/internal/ui/styles"
)

// ItemsTable renders the items dashboard as a fixed-width table.
func ItemsTable(theme *styles.Theme, rows []items.Item, width int) string {
	if len(rows) == 0 {
		return theme.SystemNote.Render("No items yet. Press 'n' to create one.")
	}

	nameW := 24
	descW := width - nameW - 16
	if descW < 10 {
		descW = 10
	}

	header := fmt.Sprintf("%-6s %s %s",
		"ID",
		runewidth.FillRight("NAME", nameW),
		"DESCRIPTION",
	)
	out := theme.TableHeader.Render(header) + "\n"

	for _, it := range rows {
		line := fmt.Sprintf("%-6d %s %s",
			it.ID,
			runewidth.FillRight(runewidth.Truncate(it.Name, nameW, "…"), nameW),
			runewidth.Truncate(it.Description, descW, "…"),
		)
		out += theme.TableRow.Render(line) + "\n"
	}
	return out
}
