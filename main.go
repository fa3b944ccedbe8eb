// snailgpt TUI - a terminal chat client with accounts and sessions.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/snailgpt-tui/internal/account"
	"github.com/jeranaias/snailgpt-tui/internal/cli"
	"github.com/jeranaias/snailgpt-tui/internal/cloud"
	"github.com/jeranaias/snailgpt-tui/internal/config"
	"github.com/jeranaias/snailgpt-tui/internal/session"
	"github.com/jeranaias/snailgpt-tui/internal/storage"
	"github.com/jeranaias/snailgpt-tui/internal/ui/chat"
	"github.com/jeranaias/snailgpt-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Printf("snailgpt %s (%s, built %s)\n", Version, GitCommit, BuildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	if err := run(); err != nil {
		if errors.Is(err, cli.ErrAborted) {
			return
		}
		fmt.Fprintf(os.Stderr, "snailgpt: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupDebugLog(cfg)

	// Accounts
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return err
	}
	accounts, err := account.Open(dbPath, cfg.Account.RecoveryExemptRoles)
	if err != nil {
		return fmt.Errorf("open account store: %w", err)
	}
	defer accounts.Close()

	acct, err := cli.RunAuth(accounts)
	if err != nil {
		return err
	}

	// Sessions
	sessionsDir, err := cfg.SessionsDir()
	if err != nil {
		return err
	}
	store, err := storage.NewSessionStoreWithDir(sessionsDir)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}

	// Cloud client
	client := cloud.New(cloud.ResolveAPIKey(cfg.API.Key)).
		WithBaseURL(cfg.API.BaseURL).
		WithModel(cfg.API.Model).
		WithStreamFormat(cfg.API.StreamFormat).
		WithPersona(cfg.Generation.Persona)

	manager := session.NewManager(store, acct.ID, client.Model(), session.DefaultConfig())

	theme := styles.NewTheme(cfg.UI.Theme, styles.AnimationLevelByName(cfg.UI.AnimationLevel))
	m := chat.New(theme, manager, client, cfg)

	p := tea.NewProgram(m, tea.WithAltScreen())
	m.SetSender(p.Send)

	// Hot reload: presentation settings apply live, the rest on restart.
	if path, perr := config.ConfigPathTOML(); perr == nil {
		if w, werr := config.NewWatcher(path, 500*time.Millisecond, func(next *config.Config) {
			p.Send(chat.ConfigReloadedMsg{Config: next})
		}); werr == nil {
			if w.Watch() == nil {
				defer w.Close()
			}
		}
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}

// setupDebugLog points the standard logger at the debug file, or
// discards logs entirely. Stdout belongs to the renderer.
func setupDebugLog(cfg *config.Config) {
	if !cfg.Debug.Enabled {
		log.SetOutput(io.Discard)
		return
	}
	path, err := cfg.DebugLogPath()
	if err != nil {
		log.SetOutput(io.Discard)
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		log.SetOutput(io.Discard)
		return
	}
	log.SetOutput(f)
}

func printUsage() {
	fmt.Println(`snailgpt - terminal chat client

Usage:
  snailgpt            start the chat interface
  snailgpt version    print version information
  snailgpt help       show this help

Configuration lives in ~/.snailgpt/config.toml. Set the API key there
or via the SNAILGPT_API_KEY environment variable.`)
}
