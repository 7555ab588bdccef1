// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - the parley config command.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/avelinek/parley/internal/config"
)

// HandleConfig shows, edits or locates the configuration file.
//
//	parley config              show
//	parley config show         show
//	parley config path         print the config file path
//	parley config set KEY VAL  set a value and save
func HandleConfig(app *App, args Args) error {
	sub := "show"
	if len(args.Raw) > 0 {
		sub = strings.ToLower(args.Raw[0])
	}

	switch sub {
	case "show":
		printConfig(app.Config)
		return nil

	case "path":
		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	case "set":
		if len(args.Raw) < 3 {
			return fmt.Errorf("usage: parley config set KEY VALUE")
		}
		key, val := strings.ToLower(args.Raw[1]), args.Raw[2]
		if err := setConfigValue(app.Config, key, val); err != nil {
			return err
		}
		if err := app.Config.Validate(); err != nil {
			return err
		}
		if err := config.Save(app.Config); err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("Set %s = %s", key, val)))
		return nil

	default:
		return fmt.Errorf("unknown config subcommand %q (want show, set or path)", sub)
	}
}

func printConfig(cfg *config.Config) {
	fmt.Println(titleStyle.Render("parley config"))
	fmt.Println(statusLine("api.url", cfg.API.BaseURL))
	fmt.Println(statusLine("api.timeout", fmt.Sprintf("%ds", cfg.API.TimeoutSecs)))
	fmt.Println(statusLine("api.rps", fmt.Sprintf("%g", cfg.API.RequestsPerSec)))
	fmt.Println(statusLine("chat.model", cfg.Chat.DefaultModel))
	fmt.Println(statusLine("chat.max_messages", strconv.Itoa(cfg.Chat.MaxMessages)))
	fmt.Println(statusLine("chat.cooldown", fmt.Sprintf("%dm", cfg.Chat.CooldownMinutes)))
	fmt.Println(statusLine("store.encrypt", strconv.FormatBool(cfg.Store.Encrypt)))
	fmt.Println(statusLine("log.level", cfg.Log.Level))
	fmt.Println(statusLine("ui.theme", cfg.UI.Theme))
	fmt.Println(statusLine("ui.markdown", strconv.FormatBool(cfg.UI.Markdown)))
}

func setConfigValue(cfg *config.Config, key, val string) error {
	switch key {
	case "api.url":
		cfg.API.BaseURL = val
	case "api.timeout":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("api.timeout wants seconds, got %q", val)
		}
		cfg.API.TimeoutSecs = n
	case "api.rps":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("api.rps wants a number, got %q", val)
		}
		cfg.API.RequestsPerSec = f
	case "chat.model":
		cfg.Chat.DefaultModel = val
	case "chat.max_messages":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("chat.max_messages wants a number, got %q", val)
		}
		cfg.Chat.MaxMessages = n
	case "chat.cooldown":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("chat.cooldown wants minutes, got %q", val)
		}
		cfg.Chat.CooldownMinutes = n
	case "store.encrypt":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("store.encrypt wants true or false, got %q", val)
		}
		cfg.Store.Encrypt = b
	case "log.level":
		cfg.Log.Level = val
	case "ui.theme":
		cfg.UI.Theme = val
	case "ui.markdown":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("ui.markdown wants true or false, got %q", val)
		}
		cfg.UI.Markdown = b
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}
