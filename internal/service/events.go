package service

import (
	"strings"
	"sync"
)

// EventKind identifies what happened to a tracked window.
type EventKind int

const (
	WindowAdded EventKind = iota
	WindowRemoved
	FocusChanged
)

func (k EventKind) String() string {
	switch k {
	case WindowAdded:
		return "added"
	case WindowRemoved:
		return "removed"
	case FocusChanged:
		return "focus"
	}

	return "unknown"
}

// Event is delivered to subscribers. A FocusChanged event with an empty title means
// no tracked window has focus.
type Event struct {
	Kind  EventKind
	Title string
	PID   uint32
}

const subscriberBuffer = 32

type broadcaster struct {
	mu     sync.Mutex
	subs   []chan Event
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{}
}

func (b *broadcaster) subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}

	b.subs = append(b.subs, ch)
	return ch
}

// send never blocks; slow subscribers miss events.
func (b *broadcaster) send(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}

	b.subs = nil
}

func equalTitle(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
