package imaging

import (
	"net/http"
	"time"

	"github.com/okian/rollbot/pkg/logger"
)

// Option configures a Blurrer.
type Option func(*Blurrer)

// WithSigma sets the gaussian blur strength.
func WithSigma(s float64) Option {
	return func(b *Blurrer) {
		if s > 0 {
			b.sigma = s
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(b *Blurrer) {
		if d > 0 {
			b.client.Timeout = d
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(b *Blurrer) {
		if c != nil {
			b.client = c
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(b *Blurrer) {
		if l != nil {
			b.log = l
		}
	}
}
