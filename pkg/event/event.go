// Package event provides a simple synchronous/async event dispatcher.
package event

import (
	"sync"

	"github.com/kgyan/makola/pkg/workerpool"
)

// Handler is a function that receives an event payload.
type Handler func(payload interface{})

var (
	mu       sync.RWMutex
	handlers = map[string][]Handler{}
)

// Listen registers a handler for the given event name.
func Listen(event string, handler Handler) {
	mu.Lock()
	defer mu.Unlock()
	handlers[event] = append(handlers[event], handler)
}

// Fire dispatches an event synchronously to all registered listeners.
func Fire(event string, payload interface{}) {
	mu.RLock()
	hs := make([]Handler, len(handlers[event]))
	copy(hs, handlers[event])
	mu.RUnlock()

	for _, h := range hs {
		h(payload)
	}
}

// pool bounds async handler concurrency so a burst of events cannot spawn
// unbounded goroutines.
var pool = workerpool.New(8)

// FireAsync dispatches the event to all listeners on the shared worker
// pool. It returns immediately without waiting for handlers to complete.
// If the pool is saturated the handler runs inline instead of being lost.
func FireAsync(event string, payload interface{}) {
	mu.RLock()
	hs := make([]Handler, len(handlers[event]))
	copy(hs, handlers[event])
	mu.RUnlock()

	for _, h := range hs {
		h := h
		if err := pool.Submit(func() { h(payload) }); err != nil {
			h(payload)
		}
	}
}

// Flush removes all listeners (useful in tests).
func Flush() {
	mu.Lock()
	defer mu.Unlock()
	handlers = map[string][]Handler{}
}
