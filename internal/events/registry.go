package events

import "sync"

type registry struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[Collection]map[uint64]Handler
}

func newRegistry() *registry {
	return &registry{handlers: make(map[Collection]map[uint64]Handler)}
}

func (r *registry) subscribe(collection Collection, handler Handler) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	if r.handlers[collection] == nil {
		r.handlers[collection] = make(map[uint64]Handler)
	}
	r.handlers[collection][id] = handler
	return &subscription{unsubscribe: func() { r.remove(collection, id) }}
}

func (r *registry) remove(collection Collection, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers[collection], id)
	if len(r.handlers[collection]) == 0 {
		delete(r.handlers, collection)
	}
}

func (r *registry) dispatch(event ChangeEvent) {
	r.mu.RLock()
	handlers := make([]Handler, 0, len(r.handlers[event.Collection]))
	for _, h := range r.handlers[event.Collection] {
		handlers = append(handlers, h)
	}
	r.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

func (r *registry) count(collection Collection) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[collection])
}

type subscription struct {
	once        sync.Once
	unsubscribe func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.unsubscribe)
}
