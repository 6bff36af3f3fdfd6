package interfaces

import (
	"context"
	"time"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
)

// KVStore is the minimal key-value contract shared by the job-state and
// report stores. Two concrete adapters exist (in-memory and sqlite); pipeline
// code never branches on backend identity.
type KVStore interface {
	// Get returns the stored value, or (nil, nil) when the key is absent or
	// expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with the given TTL. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// Bus is the publish/subscribe channel for per-job progress events.
// Delivery is best-effort and at-most-once per connected subscriber; the job
// state store, not the bus, is the durable view of progress.
type Bus interface {
	Publish(jobID string, event model.AgentEvent)
	Subscribe(jobID string, handler func(event model.AgentEvent)) Subscription
}

// Subscription is the capability to unregister a handler. Unsubscribe is
// idempotent and does not affect other subscribers.
type Subscription interface {
	Unsubscribe()
}
