package bridge

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestDispatcherOrderedDelivery(t *testing.T) {
	d := NewEventDispatcher(false, testLogger())
	defer d.Close()

	var mu sync.Mutex
	var got []string
	d.Subscribe(func(ev Event) {
		mu.Lock()
		got = append(got, ev.Content)
		mu.Unlock()
	})

	const n = 100
	for i := 0; i < n; i++ {
		d.Dispatch(Event{Type: EventMessage, Content: fmt.Sprintf("ev-%d", i)})
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == n
	}, "not all events delivered")

	mu.Lock()
	defer mu.Unlock()
	for i, content := range got {
		want := fmt.Sprintf("ev-%d", i)
		if content != want {
			t.Fatalf("event %d: got %q, want %q", i, content, want)
		}
	}
}

func TestDispatcherConcurrentProducersNoLossNoDupes(t *testing.T) {
	d := NewEventDispatcher(false, testLogger())
	defer d.Close()

	var mu sync.Mutex
	seen := make(map[string]int)
	d.Subscribe(func(ev Event) {
		mu.Lock()
		seen[ev.Content]++
		mu.Unlock()
	})

	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				d.Dispatch(Event{Type: EventMessage, Content: fmt.Sprintf("p%d-%d", p, i)})
			}
		}(p)
	}
	wg.Wait()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == producers*perProducer
	}, "not all events delivered")

	mu.Lock()
	defer mu.Unlock()
	for content, count := range seen {
		if count != 1 {
			t.Errorf("event %q delivered %d times", content, count)
		}
	}
}

func TestDispatcherHoldsEventsUntilSubscribed(t *testing.T) {
	d := NewEventDispatcher(false, testLogger())
	defer d.Close()

	d.Dispatch(Event{Type: EventInfo, Content: "early"})
	time.Sleep(20 * time.Millisecond)

	var mu sync.Mutex
	var got []string
	d.Subscribe(func(ev Event) {
		mu.Lock()
		got = append(got, ev.Content)
		mu.Unlock()
	})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == "early"
	}, "queued event not delivered after subscribe")
}

func TestDispatcherSubscribeReplacesHandler(t *testing.T) {
	d := NewEventDispatcher(false, testLogger())
	defer d.Close()

	var mu sync.Mutex
	var first, second int
	d.Subscribe(func(ev Event) {
		mu.Lock()
		first++
		mu.Unlock()
	})
	d.Subscribe(func(ev Event) {
		mu.Lock()
		second++
		mu.Unlock()
	})

	d.Dispatch(Event{Type: EventMessage, Content: "x"})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return second == 1
	}, "replacement handler never ran")

	mu.Lock()
	defer mu.Unlock()
	if first != 0 {
		t.Errorf("replaced handler received %d events, want 0", first)
	}
}

func TestDispatcherCloseDrainsThenDrops(t *testing.T) {
	d := NewEventDispatcher(false, testLogger())

	var mu sync.Mutex
	var got int
	d.Subscribe(func(ev Event) {
		mu.Lock()
		got++
		mu.Unlock()
	})

	for i := 0; i < 10; i++ {
		d.Dispatch(Event{Type: EventMessage})
	}
	d.Close()

	mu.Lock()
	delivered := got
	mu.Unlock()
	if delivered != 10 {
		t.Fatalf("delivered %d events before close completed, want 10", delivered)
	}

	// After close, dispatch is a no-op.
	d.Dispatch(Event{Type: EventMessage})
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if got != 10 {
		t.Errorf("event delivered after close: got %d", got)
	}
}
