// Package authstate broadcasts authentication state transitions to
// in-process subscribers. The auth service publishes an event on every
// login, signup and logout; interested components (listing caches, the
// request logger) subscribe once at construction and receive events for the
// lifetime of the process.
package authstate

import (
	"sync"
	"time"
)

// State is the authentication state carried by an event.
type State int

const (
	// Unauthenticated means no session exists for the user.
	Unauthenticated State = iota
	// Authenticating means a credential check is in flight.
	Authenticating
	// Authenticated means a session was issued for the user.
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Event describes one auth state transition.
type Event struct {
	State  State
	UserID string
	Email  string
	At     time.Time
}

const subscriberBuffer = 16

// Bus is a process-local publish/subscribe channel for auth events.
// Publish never blocks: a subscriber that falls behind loses events rather
// than stalling the auth path.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber and returns its event channel along
// with a teardown function. The channel is closed on teardown or when the
// bus shuts down.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber buffer full; drop rather than block the auth path.
		}
	}
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
