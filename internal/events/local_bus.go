package events

import "context"

// LocalBus delivers events in-process, synchronously on the publishing
// goroutine. Used when Redis is not configured.
type LocalBus struct {
	reg *registry
}

func NewLocalBus() *LocalBus {
	return &LocalBus{reg: newRegistry()}
}

func (b *LocalBus) Publish(_ context.Context, event ChangeEvent) error {
	b.reg.dispatch(event)
	return nil
}

func (b *LocalBus) Subscribe(collection Collection, handler Handler) Subscription {
	return b.reg.subscribe(collection, handler)
}

// Subscribers reports how many handlers are registered for collection.
func (b *LocalBus) Subscribers(collection Collection) int {
	return b.reg.count(collection)
}
