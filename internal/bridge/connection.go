package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Pamir-AI/distiller-cm5-go/internal/discovery"
)

// Default operation bounds.
const (
	DefaultConnectTimeout    = 30 * time.Second
	DefaultDisconnectTimeout = 5 * time.Second
)

// ConnectionManager orchestrates discovery, connect, query and disconnect
// against a single backend client handle. It is the only owner of the
// handle: the handle and the connected flag are mutated together so the
// two can never diverge. Operations are expected to be driven from one
// owning goroutine; callers serialize overlapping UI-triggered calls.
type ConnectionManager struct {
	status *StatusManager
	conv   *ConversationManager
	errs   *ErrorHandler
	cache  *ServerDiscoveryCache
	logger zerolog.Logger

	connectTimeout    time.Duration
	disconnectTimeout time.Duration

	mu           sync.Mutex
	client       Client
	connected    bool
	selectedPath string
	serverName   string
	onConnected  func(bool)
}

// NewConnectionManager creates a connection manager. Zero timeouts fall
// back to the defaults.
func NewConnectionManager(
	status *StatusManager,
	conv *ConversationManager,
	errs *ErrorHandler,
	cache *ServerDiscoveryCache,
	connectTimeout, disconnectTimeout time.Duration,
	logger zerolog.Logger,
) *ConnectionManager {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	if disconnectTimeout <= 0 {
		disconnectTimeout = DefaultDisconnectTimeout
	}
	return &ConnectionManager{
		status:            status,
		conv:              conv,
		errs:              errs,
		cache:             cache,
		connectTimeout:    connectTimeout,
		disconnectTimeout: disconnectTimeout,
		logger:            logger.With().Str("component", "connection").Logger(),
	}
}

// SetClient installs the backend client handle. The owning facade
// constructs the client before any connect attempt.
func (m *ConnectionManager) SetClient(client Client) {
	m.mu.Lock()
	m.client = client
	m.mu.Unlock()
}

// Client returns the current backend client handle, if any.
func (m *ConnectionManager) Client() Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

// OnConnectionChanged registers the callback fired whenever the
// connected flag flips.
func (m *ConnectionManager) OnConnectionChanged(fn func(bool)) {
	m.mu.Lock()
	m.onConnected = fn
	m.mu.Unlock()
}

// IsConnected reports the connected flag.
func (m *ConnectionManager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SelectedServer returns the selected server path.
func (m *ConnectionManager) SelectedServer() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectedPath
}

// SelectServer stores the chosen server path. Pure state update, no I/O;
// reachability is not validated here.
func (m *ConnectionManager) SelectServer(path string) {
	m.logger.Info().Str("path", path).Msg("server selected")
	m.mu.Lock()
	m.selectedPath = path
	m.mu.Unlock()
}

// Discover populates the server list and moves the status to
// Disconnected (awaiting selection). Failures are reported through the
// error handler; the return value is a success flag.
func (m *ConnectionManager) Discover() bool {
	m.status.UpdateStatus(StatusInitializing, "")

	servers, err := m.cache.Servers(false)
	if err != nil {
		m.errs.Handle(err, "Server discovery",
			"Failed to discover available servers. Please check your network connection.", false)
		return false
	}
	if len(servers) == 0 {
		m.errs.Handle(ErrNoServersFound, "Server discovery", "No MCP servers found", false)
		return false
	}

	m.logger.Info().Int("count", len(servers)).Msg("servers available, awaiting selection")
	m.status.UpdateStatus(StatusDisconnected, "")
	return true
}

// AvailableServers returns the TTL-cached server list. Listing is
// best-effort: a discovery failure is reported as a side channel and an
// empty list is returned.
func (m *ConnectionManager) AvailableServers() []discovery.Server {
	servers, err := m.cache.Servers(false)
	if err != nil {
		m.errs.Handle(err, "Server discovery",
			"Failed to discover available servers. Please check your network connection.", false)
		return []discovery.Server{}
	}
	return servers
}

// Connect establishes a session with the selected server. The attempt is
// bounded by the configured timeout; every failure path runs the shared
// cleanup so the handle and the connected flag stay consistent.
func (m *ConnectionManager) Connect(ctx context.Context, serverName string) bool {
	m.mu.Lock()
	path := m.selectedPath
	client := m.client
	connected := m.connected
	m.mu.Unlock()

	if connected {
		m.errs.Handle(ErrAlreadyConnected, "Server connection",
			"Already connected. Disconnect before connecting to another server.", false)
		return false
	}
	if path == "" {
		m.errs.Handle(ErrNoServerSelected, "Server connection",
			"No server selected. Please choose a server before connecting.", false)
		return false
	}
	if serverName == "" {
		serverName = discovery.DisplayName(path)
	}

	m.conv.AddNotice(fmt.Sprintf("Connecting to server: %s...", serverName))

	if client == nil {
		m.errs.Handle(ErrClientNotInitialized, "Server connection",
			"Failed to initialize connection client. Please restart the application.", false)
		return false
	}

	cctx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	defer cancel()

	ok, err := m.awaitConnect(cctx, client, path)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		m.errs.Handle(err, "Server connection",
			fmt.Sprintf("Connection to %s timed out after %s. Server may be busy or unavailable.",
				serverName, m.connectTimeout), false)
		m.cleanupAfterFailure()
		return false

	case err != nil:
		m.errs.Handle(err, "Server connection",
			fmt.Sprintf("Failed to connect to server: %s", serverName), false)
		m.cleanupAfterFailure()
		return false

	case !ok:
		m.errs.Handle(
			fmt.Errorf("failed to establish connection with %s: check server status and configuration", serverName),
			"Server connection", "", false)
		m.cleanupAfterFailure()
		return false
	}

	m.setConnected(true)

	displayName := client.ServerName()
	if displayName == "" {
		displayName = serverName
	}
	m.mu.Lock()
	m.serverName = displayName
	m.mu.Unlock()

	m.status.UpdateStatus(StatusConnected, displayName)
	m.conv.AddNotice(fmt.Sprintf("Connected to %s", displayName))
	return true
}

// awaitConnect runs the backend connect in its own goroutine so a
// backend that never resolves cannot outlive the timeout.
func (m *ConnectionManager) awaitConnect(ctx context.Context, client Client, path string) (bool, error) {
	type result struct {
		ok  bool
		err error
	}
	ch := make(chan result, 1)
	go func() {
		ok, err := client.Connect(ctx, path)
		ch <- result{ok, err}
	}()

	select {
	case res := <-ch:
		if res.err == nil && ctx.Err() != nil {
			return false, ctx.Err()
		}
		return res.ok, res.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// cleanupAfterFailure releases the handle after a failed connect. A
// secondary cleanup error is swallowed and logged; the handle reference
// is dropped and the connected flag reset unconditionally through the
// same path success uses.
func (m *ConnectionManager) cleanupAfterFailure() {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.mu.Unlock()

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.disconnectTimeout)
		if err := client.Cleanup(ctx); err != nil {
			m.logger.Error().Err(err).Msg("cleanup after connection failure failed")
		}
		cancel()
	}

	m.setConnected(false)
}

// Disconnect tears the session down. Cleanup is bounded by the
// disconnect timeout; whatever happens, the handle is dropped and the
// connected flag reset, so disconnect cannot fail from the caller's
// point of view.
func (m *ConnectionManager) Disconnect(ctx context.Context) {
	m.logger.Info().Msg("disconnecting from server")

	m.mu.Lock()
	client := m.client
	m.client = nil
	m.serverName = ""
	m.mu.Unlock()

	if client != nil {
		dctx, cancel := context.WithTimeout(ctx, m.disconnectTimeout)
		err := m.awaitCleanup(dctx, client)
		cancel()

		switch {
		case errors.Is(err, context.DeadlineExceeded):
			m.errs.Handle(err, "Server disconnection",
				"Disconnection timed out, but the application will continue to function.", false)
		case err != nil:
			m.errs.Handle(err, "Server disconnection",
				"An error occurred during disconnection, but the application will continue to function.", false)
		}
	}

	m.setConnected(false)
	m.status.UpdateStatus(StatusDisconnected, "")
}

func (m *ConnectionManager) awaitCleanup(ctx context.Context, client Client) error {
	ch := make(chan error, 1)
	go func() {
		ch <- client.Cleanup(ctx)
	}()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessQuery runs a user query through the backend. Log-only failures
// are reported without prominence; anything else is surfaced with the
// underlying message. Either way the status returns to Idle while still
// connected so the UI never sticks in ProcessingQuery.
func (m *ConnectionManager) ProcessQuery(ctx context.Context, query string) {
	m.mu.Lock()
	client := m.client
	serverName := m.serverName
	m.mu.Unlock()

	if client == nil {
		m.errs.Handle(ErrNotConnected, "Query processing",
			"You are not connected to any server. Please connect first.", false)
		return
	}

	m.logger.Info().Str("query", query).Msg("processing query")
	m.status.UpdateStatus(StatusProcessingQuery, serverName)

	err := client.ProcessQuery(ctx, query)
	switch {
	case err == nil:
		if m.IsConnected() && !m.status.IsError() {
			m.status.UpdateStatus(StatusIdle, serverName)
		}

	case IsLogOnly(err):
		m.errs.Handle(err, "Query processing",
			"Failed to get response from the language model. Please check your connection and try again.", false)
		if m.IsConnected() {
			m.status.UpdateStatus(StatusIdle, serverName)
		}

	default:
		m.errs.Handle(err, "Query processing",
			fmt.Sprintf("An error occurred while processing your query: %s", err.Error()), false)
		if m.IsConnected() {
			m.status.UpdateStatus(StatusIdle, serverName)
		}
	}
}

// setConnected flips the connected flag and fires the connection-changed
// callback. This is the single mutation point for the flag.
func (m *ConnectionManager) setConnected(value bool) {
	m.mu.Lock()
	if m.connected == value {
		m.mu.Unlock()
		return
	}
	m.connected = value
	fn := m.onConnected
	m.mu.Unlock()

	if fn != nil {
		fn(value)
	}
}
