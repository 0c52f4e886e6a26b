package chat

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/okian/rollbot/pkg/logger"
)

// OutboxOption configures an Outbox.
type OutboxOption func(*Outbox)

// WithCapacity bounds the number of records kept. Older records are dropped.
func WithCapacity(n int) OutboxOption {
	return func(o *Outbox) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithOutboxClock overrides the record timestamp source.
func WithOutboxClock(now func() time.Time) OutboxOption {
	return func(o *Outbox) {
		if now != nil {
			o.now = now
		}
	}
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *Webhook) {
		if c != nil {
			w.client = c
		}
	}
}

// WithTimeout sets the per-request client timeout.
func WithTimeout(d time.Duration) WebhookOption {
	return func(w *Webhook) {
		if d > 0 {
			w.client.Timeout = d
		}
	}
}

// WithMaxTries bounds delivery attempts per operation.
func WithMaxTries(n uint) WebhookOption {
	return func(w *Webhook) {
		if n > 0 {
			w.maxTries = n
		}
	}
}

// WithWebhookLogger sets the logger.
func WithWebhookLogger(l logger.Logger) WebhookOption {
	return func(w *Webhook) {
		if l != nil {
			w.log = l
		}
	}
}

// WithRetryInterval retries at a constant interval instead of the
// exponential default.
func WithRetryInterval(d time.Duration) WebhookOption {
	return func(w *Webhook) {
		if d > 0 {
			w.backOff = func() backoff.BackOff { return backoff.NewConstantBackOff(d) }
		}
	}
}
