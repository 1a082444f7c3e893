package bridge

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/Pamir-AI/distiller-cm5-go/internal/models"
)

// StreamFunc receives the accumulated content of an in-flight or
// completed event stream, keyed by the event ID.
type StreamFunc func(ev Event, accumulated string)

// EventRouter consumes dispatcher events in order and turns them into
// conversation entries, status transitions and UI stream updates. It
// reassembles chunked message/action streams by event ID.
type EventRouter struct {
	status    *StatusManager
	conv      *ConversationManager
	connected func() bool
	onStream  StreamFunc
	logger    zerolog.Logger

	// Stream reassembly state, touched only from the dispatcher's
	// consumer goroutine.
	currentID string
	chunks    []string
}

// NewEventRouter creates a router and subscribes it to the dispatcher.
func NewEventRouter(
	dispatcher *EventDispatcher,
	status *StatusManager,
	conv *ConversationManager,
	connected func() bool,
	onStream StreamFunc,
	logger zerolog.Logger,
) *EventRouter {
	r := &EventRouter{
		status:    status,
		conv:      conv,
		connected: connected,
		onStream:  onStream,
		logger:    logger.With().Str("component", "events").Logger(),
	}
	dispatcher.Subscribe(r.Handle)
	return r
}

// Handle processes one event. Dispatcher ordering guarantees make the
// chunk accumulation safe without locks.
func (r *EventRouter) Handle(ev Event) {
	switch ev.Type {
	case EventMessage:
		r.handleStream(ev, models.MessageTypeMessage, StatusIdle)

	case EventAction:
		if ev.Status == OutcomeInProgress {
			r.status.UpdateStatus(StatusExecutingTool, r.currentServer())
		}
		r.handleStream(ev, models.MessageTypeAction, StatusIdle)

	case EventInfo:
		// Info events drive status only; they never enter the chat log.
		if ev.Status == OutcomeInProgress {
			r.status.UpdateStatus(StatusThinking, r.currentServer())
		} else if ev.Status == OutcomeSuccess && r.connected() {
			r.status.UpdateStatus(StatusIdle, r.currentServer())
		}

	case EventWarning:
		r.appendToConversation(ev, models.MessageTypeWarning)
		r.emit(ev, ev.Content)

	case EventError:
		r.appendToConversation(ev, models.MessageTypeError)
		r.emit(ev, ev.Content)

	case EventObservation:
		r.appendToConversation(ev, models.MessageTypeObservation)
		r.emit(ev, ev.Content)

	case EventPlan:
		r.appendToConversation(ev, models.MessageTypePlan)
		r.emit(ev, ev.Content)

	case EventFunction:
		r.appendToConversation(ev, models.MessageTypeFunction)
		r.emit(ev, ev.Content)

	case EventStatus:
		r.handleStatus(ev)

	default:
		r.logger.Warn().Str("type", string(ev.Type)).Msg("unknown event type")
	}
}

// handleStream accumulates chunked content across a stream of events
// sharing one ID. On completion the full content is appended to the
// conversation and, while connected, the status returns to idle.
func (r *EventRouter) handleStream(ev Event, msgType models.MessageType, doneStatus Status) {
	switch ev.Status {
	case OutcomeInProgress:
		if ev.ID != r.currentID {
			r.currentID = ev.ID
			r.chunks = r.chunks[:0]
		}
		r.chunks = append(r.chunks, ev.Content)
		if acc := strings.Join(r.chunks, ""); acc != "" {
			r.emit(ev, acc)
		}

	case OutcomeSuccess:
		if len(r.chunks) > 0 && ev.ID == r.currentID {
			complete := strings.Join(r.chunks, "")
			r.emit(ev, complete)
			r.conv.AddMessage(models.Message{Content: complete, Type: msgType})
		} else if ev.Content != "" {
			// Single-frame completion without a preceding stream.
			r.emit(ev, ev.Content)
			r.conv.AddMessage(models.Message{Content: ev.Content, Type: msgType})
		}
		r.currentID = ""
		r.chunks = r.chunks[:0]
		if r.connected() {
			r.status.UpdateStatus(doneStatus, r.currentServer())
		}

	case OutcomeFailed:
		r.currentID = ""
		r.chunks = r.chunks[:0]
		r.emit(ev, ev.Content)
	}
}

// handleStatus mirrors backend status events into the status manager.
func (r *EventRouter) handleStatus(ev Event) {
	if ev.Component == "connection" {
		switch ev.Status {
		case OutcomeFailed:
			r.status.UpdateStatus(StatusError, ev.Content)
		case OutcomeSuccess:
			r.status.UpdateStatus(StatusConnected, ev.Content)
		case OutcomeInProgress:
			r.status.UpdateStatus(StatusConnecting, ev.Content)
		}
	}
	r.emit(ev, ev.Content)
}

func (r *EventRouter) appendToConversation(ev Event, msgType models.MessageType) {
	r.conv.AddMessage(models.Message{Content: ev.Content, Type: msgType})
}

func (r *EventRouter) emit(ev Event, accumulated string) {
	if r.onStream != nil {
		r.onStream(ev, accumulated)
	}
}

func (r *EventRouter) currentServer() string {
	_, name := r.status.Current()
	return name
}
