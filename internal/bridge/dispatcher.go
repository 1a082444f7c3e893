package bridge

import (
	"sync"

	"github.com/rs/zerolog"
)

// EventHandler consumes a single event.
type EventHandler func(Event)

// EventDispatcher is the single hand-off point between the backend's
// goroutines and the UI-facing consumer. Events are delivered to the
// registered handler in the exact order Dispatch was called, exactly once.
// Dispatch is safe to call from any goroutine; the handler runs on one
// consumer goroutine.
type EventDispatcher struct {
	mu      sync.Mutex
	queue   []Event
	handler EventHandler
	wake    chan struct{}
	done    chan struct{}
	closed  bool
	wg      sync.WaitGroup
	debug   bool
	logger  zerolog.Logger
}

// NewEventDispatcher creates a dispatcher and starts its consumer loop.
// With debug enabled, every event is logged with its type tag before
// delivery.
func NewEventDispatcher(debug bool, logger zerolog.Logger) *EventDispatcher {
	d := &EventDispatcher{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		debug:  debug,
		logger: logger.With().Str("component", "dispatcher").Logger(),
	}
	d.wg.Add(1)
	go d.consume()
	return d
}

// Subscribe registers the handler. A second call replaces the previous
// handler; events queued before any handler exists are held until one is
// registered.
func (d *EventDispatcher) Subscribe(handler EventHandler) {
	d.mu.Lock()
	d.handler = handler
	d.mu.Unlock()
	d.signal()
}

// Dispatch enqueues an event for ordered delivery.
func (d *EventDispatcher) Dispatch(ev Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn().Str("type", string(ev.Type)).Msg("dispatch after close, event dropped")
		return
	}
	d.queue = append(d.queue, ev)
	d.mu.Unlock()
	d.signal()
}

// Close stops the consumer after draining queued events. Dispatch calls
// after Close are dropped.
func (d *EventDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.done)
	d.wg.Wait()
}

func (d *EventDispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *EventDispatcher) consume() {
	defer d.wg.Done()
	for {
		select {
		case <-d.wake:
			d.drain()
		case <-d.done:
			d.drain()
			return
		}
	}
}

// drain delivers queued events one at a time. The lock is released around
// the handler call so Dispatch never blocks on a slow consumer.
func (d *EventDispatcher) drain() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 || d.handler == nil {
			d.mu.Unlock()
			return
		}
		ev := d.queue[0]
		d.queue = d.queue[1:]
		handler := d.handler
		d.mu.Unlock()

		if d.debug {
			d.logger.Debug().
				Str("type", string(ev.Type)).
				Str("id", ev.ID).
				Str("status", string(ev.Status)).
				Msg("dispatching event")
		}
		handler(ev)
	}
}
