// Package discovery locates MCP server entry points on the filesystem.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// serverNamePattern extracts the advertised name from a server script.
var serverNamePattern = regexp.MustCompile(`SERVER_NAME\s*=\s*['"](.+?)['"]`)

// Server describes one discovered MCP server.
type Server struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// Scanner discovers MCP servers by scanning configured directories for
// server scripts and executables.
type Scanner struct {
	dirs   []string
	logger zerolog.Logger
}

// NewScanner creates a scanner over the given directories.
func NewScanner(dirs []string, logger zerolog.Logger) *Scanner {
	return &Scanner{
		dirs:   dirs,
		logger: logger.With().Str("component", "discovery").Logger(),
	}
}

// DiscoverServers scans every configured directory and returns the
// servers found. Directories that do not exist are skipped with a
// warning; a directory that exists but cannot be read is an error.
func (s *Scanner) DiscoverServers() ([]Server, error) {
	var servers []Server

	for _, dir := range s.dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			s.logger.Warn().Str("dir", dir).Msg("server directory does not exist")
			continue
		}

		found, err := s.scanDir(dir)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
		servers = append(servers, found...)
	}

	s.logger.Info().Int("count", len(servers)).Msg("discovered servers")
	return servers, nil
}

func (s *Scanner) scanDir(dir string) ([]Server, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var servers []Server
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !isServerFile(entry.Name()) {
			continue
		}

		name := s.serverName(path)
		servers = append(servers, Server{Name: name, Path: path})
		s.logger.Debug().Str("name", name).Str("path", path).Msg("found server")
	}
	return servers, nil
}

// isServerFile recognizes the server entry-point naming conventions:
// python scripts ("*_server.py", "server.py") and ws:// endpoint files
// are handled elsewhere; plain "*-server" executables also count.
func isServerFile(name string) bool {
	if strings.HasSuffix(name, "_server.py") || name == "server.py" {
		return true
	}
	return strings.HasSuffix(name, "-server")
}

// serverName extracts the advertised server name from the file content,
// falling back to a name derived from the filename.
func (s *Scanner) serverName(path string) string {
	content, err := os.ReadFile(path)
	if err == nil {
		if m := serverNamePattern.FindSubmatch(content); m != nil {
			return string(m[1])
		}
	} else {
		s.logger.Warn().Err(err).Str("path", path).Msg("could not read server file")
	}
	return DisplayName(path)
}

// DisplayName derives a human-readable server name from a path or raw
// identifier: it strips the server prefix/suffix conventions and
// title-cases the remainder.
func DisplayName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".py")
	name = strings.TrimSuffix(name, "-server")

	if strings.HasSuffix(name, "_server") {
		name = strings.TrimSuffix(name, "_server")
	} else if strings.HasPrefix(name, "server_") {
		name = strings.TrimPrefix(name, "server_")
	}

	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.TrimSpace(name)
	if name == "" {
		return "MCP Server"
	}
	return title(name)
}

func title(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
