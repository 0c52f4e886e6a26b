package service

import (
	"context"
	"time"

	"github.com/okian/rollbot/internal/adapters/chat"
	"github.com/okian/rollbot/internal/adapters/storage"
	"github.com/okian/rollbot/internal/domain/catalog"
	"github.com/okian/rollbot/pkg/logger"
)

// Blurrer is the image-transform collaborator.
type Blurrer interface {
	Blur(ctx context.Context, imageRef string) ([]byte, error)
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore replaces the snapshot store opened from config.
func WithStore(s storage.Store) Option {
	return func(svc *Service) {
		if s != nil {
			svc.store = s
		}
	}
}

// WithMessenger replaces the messenger built from config.
func WithMessenger(m chat.Messenger) Option {
	return func(svc *Service) {
		if m != nil {
			svc.messenger = m
		}
	}
}

// WithFetcher replaces the AniList client.
func WithFetcher(f catalog.Fetcher) Option {
	return func(svc *Service) {
		if f != nil {
			svc.fetcher = f
		}
	}
}

// WithBlurrer replaces the image blurrer.
func WithBlurrer(b Blurrer) Option {
	return func(svc *Service) {
		if b != nil {
			svc.blurrer = b
		}
	}
}

// WithClock overrides time for every time-dependent component.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		if now != nil {
			svc.now = now
		}
	}
}

// WithRand fixes the randomness used for draws, rewards and scoring.
func WithRand(r Rand) Option {
	return func(svc *Service) {
		if r != nil {
			svc.rng = r
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}
