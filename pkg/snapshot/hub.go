// Package snapshot provides a full-snapshot fan-out hub, mirroring the
// delivery model of a push-based realtime store: every publication is a
// complete replacement of the previous state, never a delta.
package snapshot

import "sync"

// Hub broadcasts snapshots to subscribers. Each subscriber observes the most
// recent snapshot only: a subscriber that falls behind has intermediate
// snapshots silently superseded (last write wins), so a slow consumer never
// processes stale state or blocks a publisher.
type Hub[T any] struct {
	mu        sync.Mutex
	subs      map[int]chan T
	nextID    int
	latest    T
	hasLatest bool
}

// NewHub creates an empty Hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[int]chan T)}
}

// Publish replaces the current snapshot and delivers it to all subscribers.
// It never blocks.
func (h *Hub[T]) Publish(snap T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = snap
	h.hasLatest = true

	for _, ch := range h.subs {
		// Displace an undelivered snapshot rather than queueing behind it.
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Subscribe registers a new subscriber and returns its delivery channel and a
// cancel function. If a snapshot has already been published, it is delivered
// immediately so late subscribers start from current state.
func (h *Hub[T]) Subscribe() (<-chan T, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++

	ch := make(chan T, 1)
	if h.hasLatest {
		ch <- h.latest
	}
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
	return ch, cancel
}

// Latest returns the most recently published snapshot, if any.
func (h *Hub[T]) Latest() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.hasLatest
}
