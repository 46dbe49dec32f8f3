package event

import "sync"

type Handler func(payload interface{})

// Bus delivers synchronously, in subscription order, so phase events reach
// every consumer in the order the engine emitted them. Handlers must not
// block; publishers must not hold engine locks while publishing.
type Bus struct {
	handlers map[string][]Handler
	mu       sync.RWMutex
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
	}
}

func (b *Bus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[topic] = append(b.handlers[topic], handler)
}

func (b *Bus) Publish(topic string, payload interface{}) {
	b.mu.RLock()
	hs := b.handlers[topic]
	b.mu.RUnlock()

	for _, h := range hs {
		h(payload)
	}
}
