package repository

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithPriorities overrides the treap priority source. Tests use it to get
// a reproducible tree shape.
func WithPriorities(next func() uint64) Option {
	return func(s *TreapStore) {
		if next != nil {
			s.prio = next
		}
	}
}
