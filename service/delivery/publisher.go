package delivery

import (
	"context"
	"errors"
	"log/slog"

	"pushrelay/service/subscription"
	"pushrelay/service/util"

	"golang.org/x/sync/errgroup"
)

// Message is one encoded notification ready for the push service.
type Message struct {
	Payload []byte
	Urgency Urgency
}

// Sender delivers a message to a single subscription. It returns a
// PermanentError when the push service reports the subscription gone.
type Sender interface {
	Send(ctx context.Context, sub subscription.Subscription, msg Message) error
}

type Publisher struct {
	store       subscription.Store
	sender      Sender
	concurrency int
	logger      *slog.Logger
}

// NewPublisher creates a publisher that runs at most concurrency sends at a
// time during a broadcast. A concurrency of 1 sends sequentially.
func NewPublisher(store subscription.Store, sender Sender, concurrency int, logger *slog.Logger) *Publisher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Publisher{
		store:       store,
		sender:      sender,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (p *Publisher) SendToUser(ctx context.Context, userID string, notif Notification) error {
	sub, err := p.store.Get(ctx, userID)
	if err != nil {
		return util.LogError(p.logger, "Failed to look up subscription", err, "user", userID)
	}
	if sub == nil {
		return &NotFoundError{UserID: userID}
	}

	msg, err := newMessage(notif)
	if err != nil {
		return err
	}

	if err := p.deliver(ctx, *sub, msg); err != nil {
		return err
	}

	p.logger.Info("Notification sent", "user", userID, "title", util.Truncate(notif.Title, 50))
	return nil
}

type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusFailed  ResultStatus = "failed"
)

type UserResult struct {
	UserID string       `json:"userId"`
	Status ResultStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

type BroadcastResult struct {
	SuccessCount int          `json:"successCount"`
	FailureCount int          `json:"failureCount"`
	Results      []UserResult `json:"results"`
}

// Broadcast sends notif to every subscription present when it is called.
// A failing user never stops the others.
func (p *Publisher) Broadcast(ctx context.Context, notif Notification) (BroadcastResult, error) {
	subs, err := p.store.List(ctx)
	if err != nil {
		return BroadcastResult{}, util.LogError(p.logger, "Failed to snapshot subscriptions", err)
	}

	msg, err := newMessage(notif)
	if err != nil {
		return BroadcastResult{}, err
	}

	results := make([]UserResult, len(subs))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, sub := range subs {
		g.Go(func() error {
			results[i] = UserResult{UserID: sub.UserID, Status: StatusSuccess}
			if err := p.deliver(ctx, sub, msg); err != nil {
				results[i].Status = StatusFailed
				results[i].Error = deliveryMessage(err)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := BroadcastResult{Results: results}
	for _, r := range results {
		if r.Status == StatusSuccess {
			res.SuccessCount++
		} else {
			res.FailureCount++
		}
	}

	p.logger.Info("Broadcast finished", "success", res.SuccessCount, "failed", res.FailureCount)
	return res, nil
}

func (p *Publisher) deliver(ctx context.Context, sub subscription.Subscription, msg Message) error {
	err := p.sender.Send(ctx, sub, msg)
	if err == nil {
		p.logger.Debug("Delivered notification", "user", sub.UserID)
		return nil
	}

	dErr := &DeliveryError{UserID: sub.UserID, Err: err}
	if IsPermanent(err) {
		evicted, evictErr := p.store.Evict(ctx, sub)
		switch {
		case evictErr != nil:
			p.logger.Error("Failed to evict gone subscription", "user", sub.UserID, "error", evictErr)
		case evicted:
			p.logger.Info("Evicted gone subscription", "user", sub.UserID)
		default:
			p.logger.Debug("Gone subscription already replaced", "user", sub.UserID)
		}
		dErr.Evicted = evicted
	}

	p.logger.Error("Failed to send notification", "user", sub.UserID, "error", err, "permanent", IsPermanent(err))
	return dErr
}

func newMessage(notif Notification) (Message, error) {
	payload, err := notif.Encode()
	if err != nil {
		return Message{}, err
	}
	urgency := notif.Urgency
	if urgency == "" {
		urgency = UrgencyNormal
	}
	return Message{Payload: payload, Urgency: urgency}, nil
}

// deliveryMessage is the underlying push failure text without the user prefix.
func deliveryMessage(err error) string {
	var dErr *DeliveryError
	if errors.As(err, &dErr) {
		return dErr.Err.Error()
	}
	return err.Error()
}
