package bridge

import (
	"errors"
	"strings"
	"testing"

	"github.com/Pamir-AI/distiller-cm5-go/internal/models"
)

// memStore records persistence calls.
type memStore struct {
	saved   []models.Message
	cleared int
	saveErr error
}

func (s *memStore) SaveMessage(msg models.Message) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, msg)
	return nil
}

func (s *memStore) ClearMessages() error {
	s.cleared++
	return nil
}

func TestConversationFillsDefaults(t *testing.T) {
	c := NewConversationManager(nil, testLogger())

	c.AddMessage(models.Message{Content: "hello"})

	msgs := c.Messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	m := msgs[0]
	if m.ID == "" {
		t.Error("message ID not assigned")
	}
	if m.Type != models.MessageTypeMessage {
		t.Errorf("type = %q, want %q", m.Type, models.MessageTypeMessage)
	}
	if m.Timestamp == "" {
		t.Error("display timestamp not assigned")
	}
	if m.CreatedAt.IsZero() {
		t.Error("created_at not assigned")
	}
}

func TestConversationFormatting(t *testing.T) {
	c := NewConversationManager(nil, testLogger())

	c.AddMessage(models.Message{Content: "You: what time is it", Timestamp: "10:30:00"})
	c.AddMessage(models.Message{Content: "It is 10:30.", Timestamp: "10:30:01"})

	lines := c.Formatted()
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0] != "[10:30:00] You: what time is it::Message" {
		t.Errorf("user line = %q", lines[0])
	}
	if lines[1] != "[10:30:01] Assistant: It is 10:30.::Message" {
		t.Errorf("assistant line = %q", lines[1])
	}
}

func TestConversationPersistsMessages(t *testing.T) {
	store := &memStore{}
	c := NewConversationManager(store, testLogger())

	c.AddMessage(models.Message{Content: "hello"})

	if len(store.saved) != 1 {
		t.Fatalf("store has %d messages, want 1", len(store.saved))
	}
}

func TestConversationSurvivesStoreFailure(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	c := NewConversationManager(store, testLogger())

	c.AddMessage(models.Message{Content: "hello"})

	if len(c.Messages()) != 1 {
		t.Fatal("message lost when persistence failed")
	}
}

func TestConversationClear(t *testing.T) {
	store := &memStore{}
	c := NewConversationManager(store, testLogger())

	c.AddMessage(models.Message{Content: "hello"})
	c.Clear()

	if len(c.Messages()) != 0 {
		t.Fatal("conversation not empty after clear")
	}
	if store.cleared != 1 {
		t.Fatalf("store cleared %d times, want 1", store.cleared)
	}
}

func TestConversationRestore(t *testing.T) {
	store := &memStore{}
	c := NewConversationManager(store, testLogger())

	c.Restore([]models.Message{
		{ID: "1", Content: "You: earlier question", Timestamp: "09:00:00", Type: models.MessageTypeMessage},
		{ID: "2", Content: "earlier answer", Timestamp: "09:00:01", Type: models.MessageTypeMessage},
	})

	if len(c.Messages()) != 2 {
		t.Fatalf("got %d messages after restore, want 2", len(c.Messages()))
	}
	if len(store.saved) != 0 {
		t.Fatal("restore wrote messages back to the store")
	}
}

func TestConversationOnChanged(t *testing.T) {
	c := NewConversationManager(nil, testLogger())

	changes := 0
	c.OnChanged(func() { changes++ })

	c.AddNotice("Connecting...")
	c.Clear()

	if changes != 2 {
		t.Fatalf("onChanged fired %d times, want 2", changes)
	}
}

func TestTimestampFormat(t *testing.T) {
	ts := Timestamp()
	if len(ts) != 8 || strings.Count(ts, ":") != 2 {
		t.Fatalf("timestamp %q not in HH:MM:SS form", ts)
	}
}
