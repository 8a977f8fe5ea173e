package signal

import (
	"sync"
)

// Handler receives a signal's optional payload
type Handler func(payload any)

// Bus is a same-process broadcast of named signals
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string]map[uint64]Handler
}

// NewBus creates a new signal bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string]map[uint64]Handler),
	}
}

// Subscribe registers fn for the named signal and returns its disposer.
// Calling the disposer more than once is harmless.
func (b *Bus) Subscribe(name string, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID

	if b.handlers[name] == nil {
		b.handlers[name] = make(map[uint64]Handler)
	}
	b.handlers[name][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[name], id)
		if len(b.handlers[name]) == 0 {
			delete(b.handlers, name)
		}
	}
}

// Publish calls every handler subscribed to name on the caller's goroutine.
func (b *Bus) Publish(name string, payload any) {
	b.mu.RLock()
	fns := make([]Handler, 0, len(b.handlers[name]))
	for _, fn := range b.handlers[name] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(payload)
	}
}

func (b *Bus) subscriberCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}
