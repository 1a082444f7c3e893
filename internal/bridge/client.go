package bridge

import "context"

// Client is the backend worker handle the connection manager owns. It is
// the only contract the core has with the MCP transport layer; concrete
// implementations live in the mcp package.
type Client interface {
	// Connect establishes a session with the server at path. It returns
	// false (with or without an error) when the session could not be
	// established.
	Connect(ctx context.Context, path string) (bool, error)

	// ProcessQuery submits a user query; results arrive asynchronously
	// through the event dispatcher.
	ProcessQuery(ctx context.Context, query string) error

	// Cleanup tears the session down and releases resources.
	Cleanup(ctx context.Context) error

	// ServerName reports the server-advertised name, if known.
	ServerName() string
}
