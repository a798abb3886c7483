package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev := <-sub.C:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestSubscribeFiltersByTable(t *testing.T) {
	h := NewHub()
	orders := h.Subscribe("orders")
	everything := h.Subscribe()
	defer orders.Close()
	defer everything.Close()

	h.Publish(Event{Table: "orders", Kind: Updated})
	h.Publish(Event{Table: "payments", Kind: Inserted})

	ev := recv(t, orders)
	assert.Equal(t, "orders", ev.Table)
	assert.Equal(t, Updated, ev.Kind)
	assert.False(t, ev.At.IsZero())
	select {
	case ev := <-orders.C:
		t.Fatalf("unwanted event delivered: %+v", ev)
	default:
	}

	assert.Equal(t, "orders", recv(t, everything).Table)
	assert.Equal(t, "payments", recv(t, everything).Table)
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	h := NewHub()
	slow := h.Subscribe("orders")
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Twice the buffer; the overflow is dropped, not queued.
		for i := 0; i < subscriberBuffer*2; i++ {
			h.Publish(Event{Table: "orders", Kind: Inserted})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}
	assert.Len(t, slow.C, subscriberBuffer)
}

func TestCloseIsIdempotent(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("orders")
	require.Equal(t, 1, h.SubscriberCount())

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, h.SubscriberCount())

	// Publishing after close must not panic on the closed channel.
	h.Publish(Event{Table: "orders", Kind: Deleted})

	_, open := <-sub.C
	assert.False(t, open)
}

func TestPreservesPayloads(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe()
	defer sub.Close()

	type row struct{ ID uint }
	h.Publish(Event{Table: "orders", Kind: Updated, Before: row{1}, After: row{1}})

	ev := recv(t, sub)
	assert.Equal(t, row{1}, ev.Before)
	assert.Equal(t, row{1}, ev.After)
}
