package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"studynotes/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "changes:"

func channelFor(collection Collection) string {
	return channelPrefix + string(collection)
}

// RedisBus fans change events out across API instances over Redis pub/sub.
// Every instance receives every event and dispatches it to its own
// local subscribers.
type RedisBus struct {
	client *redis.Client
	log    *logger.Logger
	reg    *registry
	pubsub *redis.PubSub
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

func NewRedisBus(client *redis.Client, log *logger.Logger) *RedisBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisBus{
		client: client,
		log:    log,
		reg:    newRegistry(),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (b *RedisBus) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}
	b.pubsub = b.client.PSubscribe(b.ctx, channelPrefix+"*")
	if _, err := b.pubsub.Receive(b.ctx); err != nil {
		_ = b.pubsub.Close()
		return fmt.Errorf("subscribe to change channels: %w", err)
	}
	b.running = true
	b.wg.Add(1)
	go b.listen()
	return nil
}

func (b *RedisBus) Stop() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	b.mu.Unlock()

	b.cancel()
	err := b.pubsub.Close()
	b.wg.Wait()
	return err
}

func (b *RedisBus) Publish(ctx context.Context, event ChangeEvent) error {
	b.mu.Lock()
	running := b.running
	b.mu.Unlock()
	if !running {
		return errors.New("event bus not started")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return b.client.Publish(ctx, channelFor(event.Collection), data).Err()
}

func (b *RedisBus) Subscribe(collection Collection, handler Handler) Subscription {
	return b.reg.subscribe(collection, handler)
}

func (b *RedisBus) listen() {
	defer b.wg.Done()
	ch := b.pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.Warn("dropping malformed change event", "channel", msg.Channel, "error", err)
				continue
			}
			if string(event.Collection) != strings.TrimPrefix(msg.Channel, channelPrefix) {
				continue
			}
			b.reg.dispatch(event)
		}
	}
}
