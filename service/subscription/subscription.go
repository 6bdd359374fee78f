package subscription

import (
	"bytes"
	"context"
	"encoding/json"
	"time"
)

// AnonymousUserID is used when a client subscribes or unsubscribes without a user id.
const AnonymousUserID = "anonymous"

// Subscription binds a user to the push subscription descriptor issued by the
// user's browser. The descriptor is stored exactly as received.
type Subscription struct {
	UserID     string          `json:"userId"`
	Descriptor json.RawMessage `json:"subscription"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// SameDescriptor reports whether both subscriptions carry byte-identical descriptors.
func (s Subscription) SameDescriptor(other Subscription) bool {
	return bytes.Equal(s.Descriptor, other.Descriptor)
}

// Store holds at most one subscription per user id. Implementations must be
// safe for concurrent use.
type Store interface {
	// Get returns nil, nil when the user has no subscription.
	Get(ctx context.Context, userID string) (*Subscription, error)
	// Set inserts or replaces the user's subscription.
	Set(ctx context.Context, sub Subscription) error
	// Delete is a no-op for unknown users.
	Delete(ctx context.Context, userID string) error
	// Evict deletes the user's entry only if it still holds sub's descriptor.
	Evict(ctx context.Context, sub Subscription) (bool, error)
	// List returns a snapshot ordered by user id.
	List(ctx context.Context) ([]Subscription, error)
	Close() error
}
