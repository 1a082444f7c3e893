package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Pamir-AI/distiller-cm5-go/internal/bridge"
	"github.com/Pamir-AI/distiller-cm5-go/internal/discovery"
	"github.com/Pamir-AI/distiller-cm5-go/internal/mcp"
	"github.com/Pamir-AI/distiller-cm5-go/internal/store"
	"github.com/Pamir-AI/distiller-cm5-go/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive TUI",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var logOut io.Writer = io.Discard
	if f, err := openLogFile(); err == nil {
		defer f.Close()
		logOut = f
	}
	logger := newLogger(logOut)

	var history *store.Store
	if cfg.HistoryDB != "" {
		history, err = store.New(cfg.HistoryDB)
		if err != nil {
			logger.Warn().Err(err).Msg("history store unavailable, conversation will not persist")
			history = nil
		} else {
			defer history.Close()
		}
	}

	scanner := discovery.NewScanner(cfg.ServerDirs, logger)

	opts := bridge.Options{
		ConnectTimeout:    cfg.ConnectTimeout,
		DisconnectTimeout: cfg.DisconnectTimeout,
		DiscoveryTTL:      cfg.DiscoveryTTL,
		DebugEvents:       cfg.DebugEvents || debugMode,
	}

	var b *bridge.Bridge
	factory := func(path string) bridge.Client {
		return mcp.New(path, b.Dispatcher, logger)
	}
	var msgStore bridge.MessageStore
	if history != nil {
		msgStore = history
	}
	b = bridge.New(opts, scanner, msgStore, factory, logger)
	defer b.Close()

	if history != nil && cfg.HistoryLimit > 0 {
		if msgs, err := history.RecentMessages(cfg.HistoryLimit); err != nil {
			logger.Warn().Err(err).Msg("could not load conversation history")
		} else if len(msgs) > 0 {
			b.RestoreConversation(msgs)
		}
	}

	app := tui.New(b)
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
