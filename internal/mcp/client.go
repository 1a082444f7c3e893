// Package mcp provides the backend client that speaks to MCP servers
// over stdio subprocesses or WebSocket endpoints.
package mcp

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/Pamir-AI/distiller-cm5-go/internal/bridge"
)

// New creates a client for the given server path, choosing the transport
// from the path's shape: ws:// and wss:// URLs get a WebSocket client,
// everything else is treated as an executable to spawn over stdio. The
// returned client satisfies the bridge.Client contract.
func New(path string, dispatcher *bridge.EventDispatcher, logger zerolog.Logger) bridge.Client {
	if strings.HasPrefix(path, "ws://") || strings.HasPrefix(path, "wss://") {
		return NewWSClient(dispatcher, logger)
	}
	return NewStdioClient(dispatcher, logger)
}
