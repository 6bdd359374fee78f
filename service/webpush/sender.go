package webpush

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"pushrelay/service/delivery"
	"pushrelay/service/subscription"

	webpush "github.com/SherClockHolmes/webpush-go"
)

type Options struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// Subscriber is the VAPID contact, a mailto: or https: URL.
	Subscriber string
	// TTL is how long, in seconds, the push service keeps an undelivered message.
	TTL int
	// HTTPClient overrides the client used to reach push services.
	HTTPClient webpush.HTTPClient
}

type Sender struct {
	opts   Options
	logger *slog.Logger
}

func NewSender(opts Options, logger *slog.Logger) *Sender {
	if opts.TTL <= 0 {
		opts.TTL = 86400
	}
	// the library adds the mailto: scheme itself for anything that is not https
	opts.Subscriber = strings.TrimPrefix(opts.Subscriber, "mailto:")
	return &Sender{
		opts:   opts,
		logger: logger,
	}
}

func (s *Sender) Send(ctx context.Context, sub subscription.Subscription, msg delivery.Message) error {
	if s.opts.VAPIDPublicKey == "" || s.opts.VAPIDPrivateKey == "" {
		return fmt.Errorf("VAPID keys are not configured")
	}

	target, err := decodeSubscription(sub.Descriptor)
	if err != nil {
		return err
	}

	resp, err := webpush.SendNotificationWithContext(ctx, msg.Payload, target, &webpush.Options{
		HTTPClient:      s.opts.HTTPClient,
		Subscriber:      s.opts.Subscriber,
		TTL:             s.opts.TTL,
		Urgency:         toUrgency(msg.Urgency),
		VAPIDPublicKey:  s.opts.VAPIDPublicKey,
		VAPIDPrivateKey: s.opts.VAPIDPrivateKey,
	})
	if err != nil {
		return fmt.Errorf("failed to send webpush: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		s.logger.Debug("Sent webpush notification", "user", sub.UserID, "status", resp.StatusCode)
		return nil
	}

	statusErr := fmt.Errorf("push service returned status %d%s", resp.StatusCode, responseDetail(resp.Body))
	if isGone(resp.StatusCode) {
		return delivery.NewPermanentError(statusErr)
	}
	return statusErr
}

// isGone reports whether the push service says the subscription no longer exists.
func isGone(code int) bool {
	return code == http.StatusGone || code == http.StatusNotFound
}

func responseDetail(body io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(body, 256))
	if err != nil {
		return ""
	}
	detail := strings.TrimSpace(string(b))
	if detail == "" {
		return ""
	}
	return ": " + detail
}

func toUrgency(u delivery.Urgency) webpush.Urgency {
	switch u {
	case delivery.UrgencyLow:
		return webpush.UrgencyLow
	case delivery.UrgencyHigh:
		return webpush.UrgencyHigh
	default:
		return webpush.UrgencyNormal
	}
}
