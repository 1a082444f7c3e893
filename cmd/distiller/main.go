package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Pamir-AI/distiller-cm5-go/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "distiller",
	Short: "Distiller - MCP client for the desktop assistant",
	Long:  `Distiller is the desktop assistant client. It discovers MCP servers, connects to one, and drives the conversation through an interactive TUI.`,
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	configPath string
	debugMode  bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default ~/.distiller/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging and per-event dispatch logs")

	// Add subcommands
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serversCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadFromHome()
}

// newLogger builds the process logger. Output goes to w so the TUI can
// route logs to a file instead of the terminal it is drawing on.
func newLogger(w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if debugMode {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		Level(level).
		With().Timestamp().Logger()
}

// openLogFile opens ~/.distiller/distiller.log for appending. The TUI
// owns the terminal, so logs must not be written to stderr while it runs.
func openLogFile() (*os.File, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, ".distiller")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "distiller.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
