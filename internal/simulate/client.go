package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Submission outcomes.
const (
	resultAccepted  = "accepted"
	resultDuplicate = "duplicate"
)

var errStatus = errors.New("unexpected status")

// HTTPClient talks to the rollbot API.
type HTTPClient struct {
	base   string
	client *http.Client
}

func newHTTPClient(base string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{base: base, client: &http.Client{Timeout: timeout}}
}

// getJSON decodes a 200 response from path into v.
func (c *HTTPClient) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: get %s: %d", errStatus, path, resp.StatusCode)
	}
	if v == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// submit posts body to path. Backpressure is retried with backoff using
// the same body, so the event id stays stable across attempts.
func (c *HTTPClient) submit(ctx context.Context, path string, body any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	return backoff.Retry(ctx, func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
		if err != nil {
			return "", backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.client.Do(req)
		if err != nil {
			return "", err
		}
		defer func() { _ = resp.Body.Close() }()

		var ack AckResponse
		_ = json.NewDecoder(resp.Body).Decode(&ack)
		switch resp.StatusCode {
		case http.StatusAccepted:
			return resultAccepted, nil
		case http.StatusOK:
			return resultDuplicate, nil
		case http.StatusTooManyRequests:
			if s, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil {
				return "", backoff.RetryAfter(s)
			}
			return "", fmt.Errorf("%w: %d", errStatus, resp.StatusCode)
		case http.StatusServiceUnavailable:
			return "", fmt.Errorf("%w: %d", errStatus, resp.StatusCode)
		default:
			return "", backoff.Permanent(fmt.Errorf("%w: post %s: %d", errStatus, path, resp.StatusCode))
		}
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxSubmitTries),
	)
}
