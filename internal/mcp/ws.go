package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Pamir-AI/distiller-cm5-go/internal/bridge"
)

// wsHandshakeTimeout bounds the WebSocket upgrade.
const wsHandshakeTimeout = 10 * time.Second

// WSClient speaks the same JSON frame protocol as StdioClient but over a
// WebSocket connection to a remote MCP server.
type WSClient struct {
	dispatcher *bridge.EventDispatcher
	logger     zerolog.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	serverName string
	ready      chan struct{}
	queryDone  chan struct{}
	closed     chan struct{}
}

// NewWSClient creates a client that will dial the server URL on Connect.
func NewWSClient(dispatcher *bridge.EventDispatcher, logger zerolog.Logger) *WSClient {
	return &WSClient{
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "mcp-ws").Logger(),
	}
}

// Connect dials the ws:// or wss:// endpoint and waits for the hello
// frame.
func (c *WSClient) Connect(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return false, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return false, fmt.Errorf("websocket client already connected")
	}
	c.mu.Unlock()

	dialer := &websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, rawURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", rawURL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.ready = make(chan struct{})
	c.closed = make(chan struct{})
	ready := c.ready
	closed := c.closed
	c.mu.Unlock()

	go c.readLoop(conn, closed)

	select {
	case <-ready:
		return true, nil
	case <-closed:
		return false, fmt.Errorf("connection to %s closed before handshake", rawURL)
	case <-ctx.Done():
		_ = conn.Close()
		return false, ctx.Err()
	}
}

// ProcessQuery sends the query frame and waits for the query-complete
// status event.
func (c *WSClient) ProcessQuery(ctx context.Context, query string) error {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return fmt.Errorf("websocket client not connected")
	}
	done := make(chan struct{})
	c.queryDone = done
	closed := c.closed
	c.mu.Unlock()

	if err := conn.WriteJSON(wireMessage{Type: "query", Content: query}); err != nil {
		return fmt.Errorf("send query: %w", err)
	}

	select {
	case <-done:
		return nil
	case <-closed:
		return fmt.Errorf("connection closed while processing query")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cleanup closes the connection. A close handshake failure is not fatal.
func (c *WSClient) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	deadline := time.Now().Add(time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		c.logger.Debug().Err(err).Msg("close handshake failed")
	}
	return conn.Close()
}

// ServerName reports the name advertised in the hello frame.
func (c *WSClient) ServerName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverName
}

func (c *WSClient) readLoop(conn *websocket.Conn, closed chan struct{}) {
	defer close(closed)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn().Err(err).Msg("unparseable server frame")
			continue
		}
		c.handleFrame(msg)
	}
}

func (c *WSClient) handleFrame(msg wireMessage) {
	switch {
	case msg.Type == "hello":
		c.mu.Lock()
		c.serverName = msg.Content
		ready := c.ready
		c.mu.Unlock()
		if ready != nil {
			select {
			case <-ready:
			default:
				close(ready)
			}
		}
		return

	case msg.Type == "status" && msg.Component == "query" && msg.Status != string(bridge.OutcomeInProgress):
		c.mu.Lock()
		done := c.queryDone
		c.queryDone = nil
		c.mu.Unlock()
		if done != nil {
			close(done)
		}
		return
	}

	ev := bridge.Event{
		ID:        msg.ID,
		Type:      bridge.EventType(msg.Type),
		Status:    bridge.EventOutcome(msg.Status),
		Content:   msg.Content,
		Component: msg.Component,
		Timestamp: time.Now(),
	}
	if ev.ID == "" {
		ev = bridge.NewEvent(ev.Type, ev.Status, ev.Content)
		ev.Component = msg.Component
	}
	c.dispatcher.Dispatch(ev)
}
