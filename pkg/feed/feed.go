// Package feed implements the realtime change feed.
//
// Repositories publish a tagged event for every insert, update, and delete
// on a watched table; connected clients subscribe per table and reconcile by
// last-write-wins on the row payload, because delivery order relative to the
// triggering write's own HTTP response is not guaranteed.
//
//	sub := feed.Subscribe("orders", "shopper_jobs")
//	defer sub.Close()
//	for ev := range sub.C {
//	    // ev.Kind is inserted | updated | deleted
//	}
package feed

import (
	"sync"
	"time"
)

// Kind tags what happened to the row.
type Kind string

const (
	Inserted Kind = "inserted"
	Updated  Kind = "updated"
	Deleted  Kind = "deleted"
)

// Event is one change notification. Before is nil for inserts, After is nil
// for deletes.
type Event struct {
	Table  string      `json:"table"`
	Kind   Kind        `json:"kind"`
	Before interface{} `json:"before,omitempty"`
	After  interface{} `json:"after,omitempty"`
	At     time.Time   `json:"at"`
}

// subscriberBuffer bounds how many undelivered events a slow consumer may
// hold before new events are dropped for it.
const subscriberBuffer = 64

// Subscription is one consumer's view of the feed. Close is idempotent and
// deterministically stops delivery.
type Subscription struct {
	C      chan Event
	tables map[string]bool
	hub    *Hub
	once   sync.Once
}

// Close unsubscribes and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.C)
	})
}

func (s *Subscription) wants(table string) bool {
	return len(s.tables) == 0 || s.tables[table]
}

// Hub fans events out to subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a consumer for the given tables. No tables means all.
func (h *Hub) Subscribe(tables ...string) *Subscription {
	filter := make(map[string]bool, len(tables))
	for _, t := range tables {
		filter[t] = true
	}

	sub := &Subscription{
		C:      make(chan Event, subscriberBuffer),
		tables: filter,
		hub:    h,
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// Publish delivers ev to every interested subscriber without blocking the
// writer: a subscriber whose buffer is full misses the event and must
// reconcile from the authoritative row on its next read.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if !sub.wants(ev.Table) {
			continue
		}
		select {
		case sub.C <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// ── Default hub ──────────────────────────────────────────────────────────────

var defaultHub = NewHub()

// Subscribe registers a consumer on the process-wide hub.
func Subscribe(tables ...string) *Subscription { return defaultHub.Subscribe(tables...) }

// Publish sends ev through the process-wide hub.
func Publish(ev Event) { defaultHub.Publish(ev) }

// SubscriberCount reports active subscriptions on the process-wide hub.
func SubscriberCount() int { return defaultHub.SubscriberCount() }
