package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/okian/rollbot/pkg/logger"
	"github.com/okian/rollbot/pkg/metrics"
)

const defaultMaxTries = 3

// envelope is the body posted to the gateway.
type envelope struct {
	Op        string  `json:"op"`
	ChannelID string  `json:"channel_id"`
	MessageID string  `json:"message_id"`
	Message   Message `json:"message"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Webhook posts each operation as a JSON envelope to a chat gateway.
// Message ids are proposed by the client; the gateway may answer with its
// own id, which then wins.
type Webhook struct {
	url      string
	client   *http.Client
	maxTries uint
	backOff  func() backoff.BackOff
	log      logger.Logger
}

// NewWebhook creates a Webhook posting to url.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:      url,
		client:   &http.Client{Timeout: 5 * time.Second},
		maxTries: defaultMaxTries,
		backOff:  func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		log:      logger.Named("chat.webhook"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Webhook) Send(ctx context.Context, channelID string, msg Message) (string, error) {
	if channelID == "" {
		metrics.RecordMessageFailure(OpSend)
		return "", ErrEmptyChannel
	}
	id := uuid.NewString()
	body, err := w.post(ctx, envelope{Op: OpSend, ChannelID: channelID, MessageID: id, Message: msg})
	if err != nil {
		metrics.RecordMessageFailure(OpSend)
		return "", err
	}
	metrics.RecordMessage(OpSend)

	var resp sendResponse
	if len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &resp) == nil && resp.ID != "" {
		return resp.ID, nil
	}
	return id, nil
}

func (w *Webhook) Edit(ctx context.Context, channelID, messageID string, msg Message) error {
	if _, err := w.post(ctx, envelope{Op: OpEdit, ChannelID: channelID, MessageID: messageID, Message: msg}); err != nil {
		metrics.RecordMessageFailure(OpEdit)
		return err
	}
	metrics.RecordMessage(OpEdit)
	return nil
}

func (w *Webhook) post(ctx context.Context, env envelope) ([]byte, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrDelivery, err)
	}

	attempt := 0
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			w.log.Warn(ctx, "webhook attempt failed",
				logger.String("op", env.Op), logger.Int("attempt", attempt), logger.Error(err))
			return nil, err
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

		switch {
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			w.log.Warn(ctx, "webhook attempt rejected",
				logger.String("op", env.Op), logger.Int("attempt", attempt), logger.Int("status", resp.StatusCode))
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return nil, backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}
		return b, nil
	},
		backoff.WithBackOff(w.backOff()),
		backoff.WithMaxTries(w.maxTries),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrDelivery, env.Op, env.MessageID, err)
	}
	return body, nil
}
