package bridge

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Pamir-AI/distiller-cm5-go/internal/discovery"
	"github.com/Pamir-AI/distiller-cm5-go/internal/models"
)

// ClientFactory constructs a backend client for a selected server path.
// The factory is expected to wire the client to this bridge's dispatcher.
type ClientFactory func(path string) Client

// Options configures a Bridge.
type Options struct {
	ConnectTimeout    time.Duration
	DisconnectTimeout time.Duration
	DiscoveryTTL      time.Duration
	DebugEvents       bool
}

// Bridge wires the core components together and is the single surface
// the UI layer talks to.
type Bridge struct {
	Status     *StatusManager
	Dispatcher *EventDispatcher

	conv    *ConversationManager
	errs    *ErrorHandler
	cache   *ServerDiscoveryCache
	conn    *ConnectionManager
	router  *EventRouter
	factory ClientFactory
	logger  zerolog.Logger

	mu          sync.Mutex
	onUserError UserErrorFunc
	onStream    StreamFunc
}

// New creates a fully wired bridge. store may be nil to keep the
// conversation in memory only.
func New(opts Options, discoverer Discoverer, store MessageStore, factory ClientFactory, logger zerolog.Logger) *Bridge {
	b := &Bridge{
		factory: factory,
		logger:  logger.With().Str("component", "bridge").Logger(),
	}

	b.Status = NewStatusManager(logger)
	b.Dispatcher = NewEventDispatcher(opts.DebugEvents, logger)
	b.conv = NewConversationManager(store, logger)
	b.errs = NewErrorHandler(b.emitUserError, logger)
	b.cache = NewServerDiscoveryCache(discoverer, opts.DiscoveryTTL)
	b.conn = NewConnectionManager(
		b.Status, b.conv, b.errs, b.cache,
		opts.ConnectTimeout, opts.DisconnectTimeout, logger,
	)
	b.router = NewEventRouter(
		b.Dispatcher, b.Status, b.conv,
		b.conn.IsConnected, b.emitStream, logger,
	)
	return b
}

// OnUserError registers the UI callback for user-visible failures.
func (b *Bridge) OnUserError(fn UserErrorFunc) {
	b.mu.Lock()
	b.onUserError = fn
	b.mu.Unlock()
}

// OnStream registers the UI callback for event stream updates.
func (b *Bridge) OnStream(fn StreamFunc) {
	b.mu.Lock()
	b.onStream = fn
	b.mu.Unlock()
}

// OnConnectionChanged registers the callback fired when the connected
// flag flips.
func (b *Bridge) OnConnectionChanged(fn func(bool)) {
	b.conn.OnConnectionChanged(fn)
}

// OnConversationChanged registers the callback fired after conversation
// mutations.
func (b *Bridge) OnConversationChanged(fn func()) {
	b.conv.OnChanged(fn)
}

// ObserveStatus registers a status observer.
func (b *Bridge) ObserveStatus(fn StatusObserver) {
	b.Status.Observe(fn)
}

// Discover populates the server list; see ConnectionManager.Discover.
func (b *Bridge) Discover() bool {
	return b.conn.Discover()
}

// AvailableServers returns the TTL-cached server list, best-effort.
func (b *Bridge) AvailableServers() []discovery.Server {
	return b.conn.AvailableServers()
}

// SelectServer stores the chosen server path.
func (b *Bridge) SelectServer(path string) {
	b.conn.SelectServer(path)
}

// Connect constructs the backend client handle if needed and connects to
// the selected server.
func (b *Bridge) Connect(ctx context.Context, serverName string) bool {
	if b.conn.Client() == nil {
		if path := b.conn.SelectedServer(); path != "" && b.factory != nil {
			b.conn.SetClient(b.factory(path))
		}
	}
	return b.conn.Connect(ctx, serverName)
}

// Disconnect tears the current session down.
func (b *Bridge) Disconnect(ctx context.Context) {
	b.conn.Disconnect(ctx)
}

// SubmitQuery appends the user's message to the conversation and runs
// the query through the backend. Blank queries are ignored.
func (b *Bridge) SubmitQuery(ctx context.Context, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	if !b.conn.IsConnected() {
		b.errs.Handle(ErrNotConnected, "Query submission",
			"Not connected to any server. Please connect first.", false)
		return
	}

	b.conv.AddMessage(models.Message{Content: "You: " + query})
	b.conn.ProcessQuery(ctx, query)
}

// IsConnected reports the connected flag.
func (b *Bridge) IsConnected() bool {
	return b.conn.IsConnected()
}

// SelectedServer returns the selected server path.
func (b *Bridge) SelectedServer() string {
	return b.conn.SelectedServer()
}

// RestoreConversation seeds the conversation with persisted history.
func (b *Bridge) RestoreConversation(msgs []models.Message) {
	b.conv.Restore(msgs)
}

// Conversation returns a copy of the conversation log.
func (b *Bridge) Conversation() []models.Message {
	return b.conv.Messages()
}

// FormattedConversation returns the conversation as display lines.
func (b *Bridge) FormattedConversation() []string {
	return b.conv.Formatted()
}

// ClearConversation empties the conversation log.
func (b *Bridge) ClearConversation() {
	b.conv.Clear()
}

// ResetStatus returns the status to its resting state for the current
// connection.
func (b *Bridge) ResetStatus() {
	if b.conn.IsConnected() {
		_, name := b.Status.Current()
		b.Status.UpdateStatus(StatusIdle, name)
	} else {
		b.Status.UpdateStatus(StatusDisconnected, "")
	}
}

// Close disconnects if needed and stops the dispatcher.
func (b *Bridge) Close() {
	if b.conn.IsConnected() {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultDisconnectTimeout)
		b.conn.Disconnect(ctx)
		cancel()
	}
	b.Dispatcher.Close()
	b.logger.Info().Msg("bridge closed")
}

func (b *Bridge) emitUserError(msg string) {
	b.mu.Lock()
	fn := b.onUserError
	b.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

func (b *Bridge) emitStream(ev Event, accumulated string) {
	b.mu.Lock()
	fn := b.onStream
	b.mu.Unlock()
	if fn != nil {
		fn(ev, accumulated)
	}
}
