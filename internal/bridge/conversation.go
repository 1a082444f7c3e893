package bridge

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Pamir-AI/distiller-cm5-go/internal/models"
)

// MessageStore persists conversation messages. Implementations must be
// safe for use from the conversation manager's callers.
type MessageStore interface {
	SaveMessage(msg models.Message) error
	ClearMessages() error
}

// ConversationManager keeps the append-only conversation log the core
// writes human-readable notices and completed assistant output to.
type ConversationManager struct {
	mu        sync.Mutex
	messages  []models.Message
	store     MessageStore
	onChanged func()
	logger    zerolog.Logger
}

// NewConversationManager creates a conversation manager. store may be nil
// for in-memory-only operation.
func NewConversationManager(store MessageStore, logger zerolog.Logger) *ConversationManager {
	return &ConversationManager{
		store:  store,
		logger: logger.With().Str("component", "conversation").Logger(),
	}
}

// OnChanged registers a callback invoked after every mutation.
func (c *ConversationManager) OnChanged(fn func()) {
	c.mu.Lock()
	c.onChanged = fn
	c.mu.Unlock()
}

// AddMessage appends a message. Missing fields are filled with defaults.
func (c *ConversationManager) AddMessage(msg models.Message) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Type == "" {
		msg.Type = models.MessageTypeMessage
	}
	if msg.Timestamp == "" {
		msg.Timestamp = Timestamp()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	store := c.store
	changed := c.onChanged
	c.mu.Unlock()

	if store != nil {
		if err := store.SaveMessage(msg); err != nil {
			c.logger.Warn().Err(err).Msg("could not persist message")
		}
	}
	if changed != nil {
		changed()
	}
}

// AddNotice appends a plain status notice with the current timestamp.
func (c *ConversationManager) AddNotice(content string) {
	c.AddMessage(models.Message{Content: content})
}

// Restore seeds the conversation with previously persisted messages.
// Nothing is written back to the store.
func (c *ConversationManager) Restore(msgs []models.Message) {
	c.mu.Lock()
	c.messages = append([]models.Message(nil), msgs...)
	changed := c.onChanged
	c.mu.Unlock()

	if changed != nil {
		changed()
	}
}

// Messages returns a copy of the conversation.
func (c *ConversationManager) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Message(nil), c.messages...)
}

// Formatted renders the conversation as display lines:
// "[timestamp] sender: content::type". Lines whose content starts with
// "You: " are user messages, everything else is attributed to the
// assistant.
func (c *ConversationManager) Formatted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]string, 0, len(c.messages))
	for _, msg := range c.messages {
		if strings.HasPrefix(msg.Content, "You: ") {
			lines = append(lines, fmt.Sprintf("[%s] %s::%s", msg.Timestamp, msg.Content, msg.Type))
		} else {
			lines = append(lines, fmt.Sprintf("[%s] Assistant: %s::%s", msg.Timestamp, msg.Content, msg.Type))
		}
	}
	return lines
}

// Clear empties the conversation.
func (c *ConversationManager) Clear() {
	c.mu.Lock()
	c.messages = nil
	store := c.store
	changed := c.onChanged
	c.mu.Unlock()

	if store != nil {
		if err := store.ClearMessages(); err != nil {
			c.logger.Warn().Err(err).Msg("could not clear persisted messages")
		}
	}
	if changed != nil {
		changed()
	}
}

// Timestamp returns the display timestamp for a new message.
func Timestamp() string {
	return time.Now().Format("15:04:05")
}
