package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Pamir-AI/distiller-cm5-go/internal/discovery"
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List discovered MCP servers",
	RunE:  runServers,
}

func runServers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr)
	scanner := discovery.NewScanner(cfg.ServerDirs, logger)

	servers, err := scanner.DiscoverServers()
	if err != nil {
		return fmt.Errorf("discovering servers: %w", err)
	}
	if len(servers) == 0 {
		fmt.Println("No MCP servers found.")
		fmt.Printf("Searched: %v\n", cfg.ServerDirs)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPATH")
	for _, s := range servers {
		fmt.Fprintf(w, "%s\t%s\n", s.Name, s.Path)
	}
	return w.Flush()
}
