package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Pamir-AI/distiller-cm5-go/internal/bridge"
)

// StdioClient runs an MCP server as a subprocess and exchanges
// newline-delimited JSON with it: queries go to stdin, events come back
// on stdout and are forwarded to the dispatcher in arrival order.
type StdioClient struct {
	dispatcher *bridge.EventDispatcher
	logger     zerolog.Logger

	mu         sync.Mutex
	cmd        *exec.Cmd
	cancel     context.CancelFunc
	stdin      io.WriteCloser
	serverName string
	ready      chan struct{}
	queryDone  chan struct{}
	exited     chan struct{}
}

// NewStdioClient creates a client that will spawn the server executable
// on Connect.
func NewStdioClient(dispatcher *bridge.EventDispatcher, logger zerolog.Logger) *StdioClient {
	return &StdioClient{
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "mcp-stdio").Logger(),
	}
}

// wireMessage is one newline-delimited JSON frame in either direction.
type wireMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Status    string `json:"status,omitempty"`
	Content   string `json:"content,omitempty"`
	Component string `json:"component,omitempty"`
}

// Connect spawns the server process and waits for its hello frame.
func (c *StdioClient) Connect(ctx context.Context, path string) (bool, error) {
	c.mu.Lock()
	if c.cmd != nil {
		c.mu.Unlock()
		return false, fmt.Errorf("stdio client already connected")
	}

	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, path)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		c.mu.Unlock()
		return false, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		c.mu.Unlock()
		return false, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		c.mu.Unlock()
		return false, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		c.mu.Unlock()
		return false, fmt.Errorf("start server %s: %w", path, err)
	}

	c.cmd = cmd
	c.cancel = cancel
	c.stdin = stdin
	c.ready = make(chan struct{})
	c.exited = make(chan struct{})
	ready := c.ready
	exited := c.exited
	c.mu.Unlock()

	go c.readEvents(stdout)
	go c.readStderr(stderr)
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	select {
	case <-ready:
		return true, nil
	case <-exited:
		return false, fmt.Errorf("server %s exited before handshake", path)
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// ProcessQuery writes the query frame and waits for the server's
// query-complete status event.
func (c *StdioClient) ProcessQuery(ctx context.Context, query string) error {
	c.mu.Lock()
	if c.stdin == nil {
		c.mu.Unlock()
		return fmt.Errorf("stdio client not connected")
	}
	done := make(chan struct{})
	c.queryDone = done
	stdin := c.stdin
	exited := c.exited
	c.mu.Unlock()

	frame, err := json.Marshal(wireMessage{Type: "query", Content: query})
	if err != nil {
		return fmt.Errorf("encode query: %w", err)
	}
	if _, err := stdin.Write(append(frame, '\n')); err != nil {
		return fmt.Errorf("write query: %w", err)
	}

	select {
	case <-done:
		return nil
	case <-exited:
		return fmt.Errorf("server exited while processing query")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cleanup terminates the subprocess. It waits briefly for a clean exit
// before relying on the process context kill.
func (c *StdioClient) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	cmd := c.cmd
	cancel := c.cancel
	stdin := c.stdin
	exited := c.exited
	c.cmd = nil
	c.cancel = nil
	c.stdin = nil
	c.mu.Unlock()

	if cmd == nil {
		return nil
	}

	if stdin != nil {
		_ = stdin.Close()
	}

	select {
	case <-exited:
	case <-time.After(500 * time.Millisecond):
		cancel()
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}

	// cancel is idempotent; make sure the process context is released.
	cancel()
	return nil
}

// ServerName reports the name advertised in the hello frame.
func (c *StdioClient) ServerName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverName
}

// readEvents forwards server stdout frames to the dispatcher.
func (c *StdioClient) readEvents(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg wireMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			c.logger.Warn().Err(err).Str("line", string(line)).Msg("unparseable server frame")
			continue
		}
		c.handleFrame(msg)
	}
}

func (c *StdioClient) handleFrame(msg wireMessage) {
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

// readStderr logs server diagnostics without forwarding them to the UI.
func (c *StdioClient) readStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		c.logger.Debug().Str("stderr", line).Msg("server output")
	}
}
