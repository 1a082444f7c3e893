package mcp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Pamir-AI/distiller-cm5-go/internal/bridge"
)

func TestNewPicksTransportFromPath(t *testing.T) {
	d := bridge.NewEventDispatcher(false, zerolog.Nop())
	defer d.Close()

	if _, ok := New("ws://localhost:8765", d, zerolog.Nop()).(*WSClient); !ok {
		t.Error("ws:// path did not yield a WebSocket client")
	}
	if _, ok := New("wss://example.com/mcp", d, zerolog.Nop()).(*WSClient); !ok {
		t.Error("wss:// path did not yield a WebSocket client")
	}
	if _, ok := New("/srv/demo_server.py", d, zerolog.Nop()).(*StdioClient); !ok {
		t.Error("file path did not yield a stdio client")
	}
}

func TestHandleFrameHello(t *testing.T) {
	d := bridge.NewEventDispatcher(false, zerolog.Nop())
	defer d.Close()
	c := NewStdioClient(d, zerolog.Nop())
	c.ready = make(chan struct{})

	c.handleFrame(wireMessage{Type: "hello", Content: "Demo Server"})

	if c.ServerName() != "Demo Server" {
		t.Fatalf("ServerName() = %q", c.ServerName())
	}
	select {
	case <-c.ready:
	default:
		t.Fatal("hello frame did not signal readiness")
	}

	// A repeated hello must not close the channel twice.
	c.handleFrame(wireMessage{Type: "hello", Content: "Demo Server"})
}

func TestHandleFrameQueryCompletion(t *testing.T) {
	d := bridge.NewEventDispatcher(false, zerolog.Nop())
	defer d.Close()
	c := NewStdioClient(d, zerolog.Nop())

	done := make(chan struct{})
	c.queryDone = done

	c.handleFrame(wireMessage{Type: "status", Component: "query", Status: "success"})

	select {
	case <-done:
	default:
		t.Fatal("query-complete status did not signal completion")
	}
}

func TestHandleFrameInProgressQueryStatusDoesNotComplete(t *testing.T) {
	d := bridge.NewEventDispatcher(false, zerolog.Nop())
	defer d.Close()
	c := NewStdioClient(d, zerolog.Nop())

	done := make(chan struct{})
	c.queryDone = done

	c.handleFrame(wireMessage{Type: "status", Component: "query", Status: "in_progress"})

	select {
	case <-done:
		t.Fatal("in-progress status treated as completion")
	default:
	}
}

func TestHandleFrameForwardsEvents(t *testing.T) {
	d := bridge.NewEventDispatcher(false, zerolog.Nop())
	defer d.Close()

	var mu sync.Mutex
	var got []bridge.Event
	d.Subscribe(func(ev bridge.Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})

	c := NewStdioClient(d, zerolog.Nop())
	c.handleFrame(wireMessage{Type: "message", ID: "ev-1", Status: "in_progress", Content: "chunk"})
	c.handleFrame(wireMessage{Type: "warning", Content: "no id frame"})

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d events, want 2", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if got[0].ID != "ev-1" || got[0].Type != bridge.EventMessage || got[0].Content != "chunk" {
		t.Errorf("first event = %+v", got[0])
	}
	if got[1].ID == "" {
		t.Error("event without wire ID was not assigned one")
	}
	if got[1].Type != bridge.EventWarning {
		t.Errorf("second event type = %q", got[1].Type)
	}
}

func TestProcessQueryNotConnected(t *testing.T) {
	d := bridge.NewEventDispatcher(false, zerolog.Nop())
	defer d.Close()
	c := NewStdioClient(d, zerolog.Nop())

	if err := c.ProcessQuery(context.Background(), "hello"); err == nil {
		t.Fatal("ProcessQuery succeeded without a connection")
	}
}

func TestCleanupWithoutProcess(t *testing.T) {
	d := bridge.NewEventDispatcher(false, zerolog.Nop())
	defer d.Close()
	c := NewStdioClient(d, zerolog.Nop())

	if err := c.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup on unconnected client: %v", err)
	}
}
