package bridge

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Status represents the client's operational state as shown to the UI.
type Status int

const (
	StatusInitializing Status = iota
	StatusConnecting
	StatusDisconnected
	StatusConnected
	StatusProcessingQuery
	StatusExecutingTool
	StatusThinking
	StatusIdle
	StatusError
)

// String returns the human-readable form of the status.
func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusConnecting:
		return "connecting"
	case StatusDisconnected:
		return "disconnected"
	case StatusConnected:
		return "connected"
	case StatusProcessingQuery:
		return "processing_query"
	case StatusExecutingTool:
		return "executing_tool"
	case StatusThinking:
		return "thinking"
	case StatusIdle:
		return "idle"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// StatusObserver receives status change notifications.
type StatusObserver func(status Status, serverName string)

// StatusManager holds the single current operational state and notifies
// observers on change. It cannot fail, only record.
type StatusManager struct {
	mu         sync.Mutex
	status     Status
	serverName string
	isError    bool
	updatedAt  time.Time
	observers  []StatusObserver
	logger     zerolog.Logger
}

// NewStatusManager creates a status manager starting in the idle state.
func NewStatusManager(logger zerolog.Logger) *StatusManager {
	return &StatusManager{
		status:    StatusIdle,
		updatedAt: time.Now(),
		logger:    logger.With().Str("component", "status").Logger(),
	}
}

// Observe registers an observer for status changes.
func (m *StatusManager) Observe(fn StatusObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// UpdateStatus transitions to a new status. Redundant updates (same status
// and server name) are no-ops and emit no notification.
func (m *StatusManager) UpdateStatus(status Status, serverName string) {
	m.mu.Lock()
	if m.status == status && m.serverName == serverName {
		m.mu.Unlock()
		return
	}

	m.logger.Info().
		Str("from", m.status.String()).
		Str("to", status.String()).
		Str("server", serverName).
		Msg("status transition")

	m.status = status
	m.serverName = serverName
	m.updatedAt = time.Now()
	m.isError = status == StatusError

	observers := make([]StatusObserver, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(status, serverName)
	}
}

// Current returns the current status and the connected server name, if any.
func (m *StatusManager) Current() (Status, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.serverName
}

// UpdatedAt returns the time of the last status change.
func (m *StatusManager) UpdatedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updatedAt
}

// IsError reports whether the manager is in the error state.
func (m *StatusManager) IsError() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isError
}
