// Package streamhub fans out domain events to many readers behind bounded,
// per-subscriber queues (spec.md §4.5). A slow or stalled subscriber is
// evicted rather than allowed to backpressure the single writer.
package streamhub

import (
	"sync"
	"sync/atomic"

	"github.com/alanyoungcy/polymarketbot/internal/domain"
)

// QueueCapacity is the bounded size of each subscriber's event queue.
const QueueCapacity = 100

// Subscription is a bounded read-only channel handed back by Subscribe. The
// caller must call Hub.Unsubscribe when done reading.
type Subscription struct {
	id     uint64
	events chan domain.StreamEvent
}

// Events returns the channel to range over.
func (s *Subscription) Events() <-chan domain.StreamEvent { return s.events }

// Hub is a single-writer, many-reader fan-out point for StreamEvents.
type Hub struct {
	mu          sync.Mutex
	subscribers map[uint64]chan domain.StreamEvent
	nextID      uint64

	eventCount int64
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{subscribers: make(map[uint64]chan domain.StreamEvent)}
}

// Subscribe registers a new bounded-capacity reader.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	ch := make(chan domain.StreamEvent, QueueCapacity)
	h.subscribers[id] = ch
	return &Subscription{id: id, events: ch}
}

// Unsubscribe removes and closes a subscriber's channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[sub.id]; ok {
		delete(h.subscribers, sub.id)
		close(ch)
	}
}

// Emit performs a non-blocking enqueue to every subscriber. A subscriber
// whose queue is already full is treated as dead and evicted (spec.md §4.5).
func (h *Hub) Emit(event domain.StreamEvent) {
	atomic.AddInt64(&h.eventCount, 1)

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			delete(h.subscribers, id)
			close(ch)
		}
	}
}

// EventCount returns the process-wide count of events ever emitted.
func (h *Hub) EventCount() int64 {
	return atomic.LoadInt64(&h.eventCount)
}

// SubscriberCount returns the number of currently live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Status is the snapshot returned by the /streams endpoint.
type Status struct {
	EventCount      int64
	SubscriberCount int
}

// Status returns the current counters.
func (h *Hub) Status() Status {
	return Status{EventCount: h.EventCount(), SubscriberCount: h.SubscriberCount()}
}
