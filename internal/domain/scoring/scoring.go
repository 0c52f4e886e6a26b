// Package scoring derives an entity's point value from its popularity.
package scoring

import (
	"math"
	"math/rand/v2"
)

// Default scoring configuration constants.
const (
	DefaultMaxPopularity = 32670
	baseScale            = 1000
	maxRandomBonus       = 100
)

// tier is a multiplicative boost applied when base >= min.
type tier struct {
	min   float64
	ratio float64
}

// tiers are checked top-down; the first match wins.
var tiers = []tier{
	{min: 900, ratio: 0.10},
	{min: 700, ratio: 0.12},
	{min: 600, ratio: 0.15},
	{min: 500, ratio: 0.20},
	{min: 300, ratio: 0.22},
	{min: 200, ratio: 0.30},
	{min: 100, ratio: 0.50},
}

// Rand is the randomness source for the sub-100 branch.
type Rand interface {
	// IntN returns a value in [0, n).
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) } //nolint:gosec // cosmetic variance, not security

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithRand injects the randomness source, mostly for tests.
func WithRand(r Rand) Option {
	return func(s *Scorer) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithMaxPopularity sets the popularity ceiling used to normalise base.
func WithMaxPopularity(maxPopularity int) Option {
	return func(s *Scorer) {
		if maxPopularity > 0 {
			s.maxPopularity = float64(maxPopularity)
		}
	}
}

// Scorer computes entity values. It is stateless apart from its random
// source and safe for concurrent use when the source is.
type Scorer struct {
	maxPopularity float64
	rng           Rand
}

// NewScorer creates a scorer with configuration options.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		maxPopularity: DefaultMaxPopularity,
		rng:           globalRand{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Base returns the normalised popularity, popularity*1000/max.
func (s *Scorer) Base(popularity int) float64 {
	if popularity < 0 {
		popularity = 0
	}
	return float64(popularity) * baseScale / s.maxPopularity
}

// Boost returns the boost added to base. Below the lowest tier the boost
// is base plus a random integer in [1,100], so low-popularity entities
// end up at roughly twice their base plus noise.
func (s *Scorer) Boost(base float64) float64 {
	for _, t := range tiers {
		if base >= t.min {
			return base * t.ratio
		}
	}
	return base + float64(s.rng.IntN(maxRandomBonus)+1)
}

// Value returns round(base + boost) with halves rounded up.
func (s *Scorer) Value(popularity int) int64 {
	base := s.Base(popularity)
	return roundHalfUp(base + s.Boost(base))
}

func roundHalfUp(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}
