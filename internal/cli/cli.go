// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - command parsing and dispatch for the parley CLI.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdSignup
	CmdChat
	CmdItems
	CmdStatus
	CmdConfig
	CmdLogout
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	Model   string

	// Chat
	Plain bool

	// Raw args remaining after the command word
	Raw []string
}

const usageText = `parley - chat client for the parley backend

Usage:
  parley                     Start the TUI (default)
  parley login               Log in and store a session
  parley signup              Create an account
  parley chat [--plain]      Chat in the terminal without the TUI
  parley items [list|new]    Items dashboard
  parley status, s           Show session and cooldown status
  parley config [show|set|path]  Configuration
  parley logout              Discard the stored session
  parley version, -v         Show version
  parley help, -h            Show this help

Global flags:
  --model gpt|claude         Override the configured model
  --quiet, -q                Suppress informational output
  --verbose                  Log at debug level

Chat commands (inside parley chat):
  /clear                     Start a fresh conversation locally
  /reset                     Clear server-side history too
  /model [gpt|claude]        Show or switch the model
  /status                    Show session and cooldown status
  /quit                      Exit

Configuration:
  Config file lives at ~/.parley/config.toml. Environment variables
  with the PARLEY_ prefix override the file (PARLEY_API_URL,
  PARLEY_MODEL, PARLEY_LOG_LEVEL, ...).
`

// Parse reads os.Args and returns the command plus its arguments.
func Parse() (Command, Args) {
	raw := os.Args[1:]
	remaining, args := parseGlobalFlags(raw)

	if len(remaining) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(remaining[0])
	args.Raw = remaining[1:]

	switch cmd {
	case "tui":
		return CmdTUI, args
	case "login":
		return CmdLogin, args
	case "signup", "register":
		return CmdSignup, args
	case "chat":
		for _, a := range args.Raw {
			if a == "--plain" || a == "-p" {
				args.Plain = true
			}
		}
		return CmdChat, args
	case "items", "item":
		return CmdItems, args
	case "status", "s":
		return CmdStatus, args
	case "config":
		return CmdConfig, args
	case "logout":
		return CmdLogout, args
	case "version", "-v", "--version":
		return CmdVersion, args
	case "help", "-h", "--help":
		return CmdHelp, args
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		return CmdHelp, args
	}
}

// parseGlobalFlags strips flags that apply to every command.
func parseGlobalFlags(raw []string) ([]string, Args) {
	var args Args
	remaining := make([]string, 0, len(raw))

	i := 0
	for i < len(raw) {
		switch raw[i] {
		case "--quiet", "-q":
			args.Quiet = true
		case "--verbose":
			args.Verbose = true
		case "--model", "-m":
			if i+1 < len(raw) {
				args.Model = raw[i+1]
				i++
			}
		default:
			if strings.HasPrefix(raw[i], "--model=") {
				args.Model = strings.TrimPrefix(raw[i], "--model=")
			} else {
				remaining = append(remaining, raw[i])
			}
		}
		i++
	}

	return remaining, args
}

// PrintUsage writes the help text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion writes build information to stdout.
func PrintVersion() {
	fmt.Printf("parley %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
