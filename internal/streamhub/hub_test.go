package streamhub

import (
	"testing"

	"github.com/alanyoungcy/polymarketbot/internal/domain"
)

func TestHub_EmitDeliversToSubscriber(t *testing.T) {
	h := New()
	sub := h.Subscribe()
	defer h.Unsubscribe(sub)

	h.Emit(domain.StreamEvent{Source: "test", EventType: "tick"})

	select {
	case ev := <-sub.Events():
		if ev.EventType != "tick" {
			t.Fatalf("want event type 'tick', got %q", ev.EventType)
		}
	default:
		t.Fatal("want the event delivered synchronously into the bounded channel")
	}
	if h.EventCount() != 1 {
		t.Fatalf("want event count 1, got %d", h.EventCount())
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := New()
	sub := h.Subscribe()
	h.Unsubscribe(sub)

	if _, ok := <-sub.Events(); ok {
		t.Fatal("want the channel closed after Unsubscribe")
	}
	if h.SubscriberCount() != 0 {
		t.Fatalf("want 0 subscribers after unsubscribe, got %d", h.SubscriberCount())
	}
}

func TestHub_FullQueueEvictsSubscriber(t *testing.T) {
	h := New()
	sub := h.Subscribe()

	for i := 0; i < QueueCapacity+1; i++ {
		h.Emit(domain.StreamEvent{Source: "test", EventType: "tick"})
	}

	if h.SubscriberCount() != 0 {
		t.Fatalf("want the stalled subscriber evicted, got %d remaining", h.SubscriberCount())
	}
	if _, ok := <-sub.Events(); ok {
		// draining is fine; the point is the channel must eventually close.
		for ok {
			_, ok = <-sub.Events()
		}
	}
}

func TestHub_MultipleSubscribersEachGetEvent(t *testing.T) {
	h := New()
	a := h.Subscribe()
	b := h.Subscribe()
	defer h.Unsubscribe(a)
	defer h.Unsubscribe(b)

	h.Emit(domain.StreamEvent{Source: "test", EventType: "tick"})

	if _, ok := <-a.Events(); !ok {
		t.Fatal("want subscriber a to receive the event")
	}
	if _, ok := <-b.Events(); !ok {
		t.Fatal("want subscriber b to receive the event")
	}
}
