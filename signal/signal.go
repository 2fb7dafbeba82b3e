// Package signal provides a small synchronous delegate: handlers are
// keyed by an owner value so they can be unbound without keeping the
// function reference around.
package signal

import "sync"

type handler struct {
	owner interface{}
	fn    func(arg interface{})
}

// Event is an owner-keyed list of callbacks invoked synchronously on
// the emitting goroutine. A handler may Bind/Unbind (itself included)
// from within Emit.
type Event struct {
	mu       sync.Mutex
	handlers []handler
}

func (e *Event) Bind(owner interface{}, fn func(arg interface{})) {
	e.mu.Lock()
	e.handlers = append(e.handlers, handler{owner: owner, fn: fn})
	e.mu.Unlock()
}

// Unbind removes every handler bound with the given owner.
func (e *Event) Unbind(owner interface{}) {
	e.mu.Lock()
	kept := e.handlers[:0]
	for _, h := range e.handlers {
		if h.owner != owner {
			kept = append(kept, h)
		}
	}
	e.handlers = kept
	e.mu.Unlock()
}

func (e *Event) Emit(arg interface{}) {
	e.mu.Lock()
	snapshot := make([]handler, len(e.handlers))
	copy(snapshot, e.handlers)
	e.mu.Unlock()
	for _, h := range snapshot {
		h.fn(arg)
	}
}

func (e *Event) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}
