package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"pushrelay/service/subscription"
	"pushrelay/service/util"
)

// Registry applies the subscribe/unsubscribe rules on top of a Store.
type Registry struct {
	store  subscription.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewRegistry(store subscription.Store, logger *slog.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func userIDOrAnonymous(userID string) string {
	if userID == "" {
		return subscription.AnonymousUserID
	}
	return userID
}

// DescriptorMissing reports whether raw is absent or a falsy JSON value
// (null, false, "" or 0) that can never be a subscription.
func DescriptorMissing(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "false", `""`:
		return true
	}
	var n float64
	if err := json.Unmarshal(trimmed, &n); err == nil {
		return n == 0
	}
	return false
}

func (r *Registry) Subscribe(ctx context.Context, userID string, descriptor json.RawMessage) error {
	if DescriptorMissing(descriptor) {
		return NewValidationError("Subscription is required")
	}
	trimmed := bytes.TrimSpace(descriptor)

	userID = userIDOrAnonymous(userID)
	sub := subscription.Subscription{
		UserID:     userID,
		Descriptor: trimmed,
		UpdatedAt:  r.now(),
	}
	if err := r.store.Set(ctx, sub); err != nil {
		return util.LogError(r.logger, "Failed to save subscription", err, "user", userID)
	}

	r.logger.Info("Subscription saved", "user", userID)
	return nil
}

func (r *Registry) Unsubscribe(ctx context.Context, userID string) error {
	userID = userIDOrAnonymous(userID)
	if err := r.store.Delete(ctx, userID); err != nil {
		return util.LogError(r.logger, "Failed to remove subscription", err, "user", userID)
	}

	r.logger.Info("Unsubscribed user", "user", userID)
	return nil
}

type Stats struct {
	TotalSubscriptions int      `json:"totalSubscriptions"`
	Subscriptions      []string `json:"subscriptions"`
}

func (r *Registry) Stats(ctx context.Context) (Stats, error) {
	subs, err := r.store.List(ctx)
	if err != nil {
		return Stats{}, util.LogError(r.logger, "Failed to list subscriptions", err)
	}

	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.UserID)
	}
	return Stats{
		TotalSubscriptions: len(ids),
		Subscriptions:      ids,
	}, nil
}
