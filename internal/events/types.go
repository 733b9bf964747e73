package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Collection names the upstream table a change happened in.
type Collection string

const (
	CollectionContentItems Collection = "content_items"
	CollectionEngagement   Collection = "engagement"
)

type Op string

const (
	OpCreated Op = "created"
	OpDeleted Op = "deleted"
)

// ChangeEvent describes one committed change. RecordID is always the content
// item the change concerns.
type ChangeEvent struct {
	Collection Collection    `json:"collection"`
	Op         Op            `json:"op"`
	RecordID   uuid.UUID     `json:"record_id"`
	ActorID    uuid.UUID     `json:"actor_id"`
	CourseID   uuid.NullUUID `json:"course_id"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Handler is invoked once per change event. Handlers must not block.
type Handler func(ChangeEvent)

// Subscription is returned by Subscribe. Unsubscribe stops further
// deliveries and may be called more than once.
type Subscription interface {
	Unsubscribe()
}

type Publisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

// Observer registers callbacks for a collection. Registrations live until the
// caller unsubscribes.
type Observer interface {
	Subscribe(collection Collection, handler Handler) Subscription
}

type Bus interface {
	Publisher
	Observer
}
