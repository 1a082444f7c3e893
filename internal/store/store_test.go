package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Pamir-AI/distiller-cm5-go/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndRecentMessages(t *testing.T) {
	s := newTestStore(t)

	base := time.Now().Add(-time.Minute)
	for i, content := range []string{"You: first", "first answer", "You: second"} {
		err := s.SaveMessage(models.Message{
			ID:        string(rune('a' + i)),
			Timestamp: "10:00:0" + string(rune('0'+i)),
			Content:   content,
			Type:      models.MessageTypeMessage,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("saving message %d: %v", i, err)
		}
	}

	msgs, err := s.RecentMessages(10)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0].Content != "You: first" || msgs[2].Content != "You: second" {
		t.Fatalf("messages out of chronological order: %v", msgs)
	}
}

func TestRecentMessagesLimit(t *testing.T) {
	s := newTestStore(t)

	base := time.Now().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		err := s.SaveMessage(models.Message{
			ID:        string(rune('a' + i)),
			Timestamp: "10:00:00",
			Content:   "msg",
			Type:      models.MessageTypeMessage,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := s.RecentMessages(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	// The newest two, oldest first.
	if msgs[0].ID != "d" || msgs[1].ID != "e" {
		t.Fatalf("got IDs %s %s, want d e", msgs[0].ID, msgs[1].ID)
	}
}

func TestClearMessages(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveMessage(models.Message{ID: "a", Timestamp: "10:00:00", Content: "hi", Type: models.MessageTypeMessage}); err != nil {
		t.Fatal(err)
	}
	if err := s.ClearMessages(); err != nil {
		t.Fatalf("ClearMessages: %v", err)
	}

	msgs, err := s.RecentMessages(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Fatalf("got %d messages after clear, want 0", len(msgs))
	}
}

func TestMessageTypeRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveMessage(models.Message{ID: "a", Timestamp: "10:00:00", Content: "careful", Type: models.MessageTypeWarning}); err != nil {
		t.Fatal(err)
	}

	msgs, err := s.RecentMessages(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Type != models.MessageTypeWarning {
		t.Fatalf("messages = %v, want one warning", msgs)
	}
}
