package event

import (
	"log/slog"
	"sync"
)

// Bus is a best-effort fan-out channel. Publish never blocks: when a
// subscriber's buffer is full the event is dropped for that subscriber and
// counted, never delivered late. Financial state must not depend on anything
// sent through here.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan Event
	closed bool
	onDrop func()
}

// NewBus creates an event bus. onDrop is invoked once per dropped delivery
// and may be nil.
func NewBus(onDrop func()) *Bus {
	return &Bus{onDrop: onDrop}
}

// Subscribe registers a new subscriber with its own buffer.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 256
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers ev to every subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	if ev == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("event bus subscriber full, dropping event", slog.String("kind", ev.Kind()))
			if b.onDrop != nil {
				b.onDrop()
			}
		}
	}
}

// Close shuts the bus down; all subscriber channels are closed.
func (b *Bus) Close() {
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
