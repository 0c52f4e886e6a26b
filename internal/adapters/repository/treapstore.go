package repository

import (
	"context"
	"math/rand/v2"
	"sync"
)

// Treap-based, in-memory Index implementation.
//
// Ordering: value DESC, then seq ASC, where seq is the insertion counter.
// "less" means ranks earlier, so an in-order traversal yields the
// leaderboard from best to worst and equal values keep insertion order.

type key struct {
	value int64
	seq   uint64
}

// less returns true if a should appear before b in the leaderboard.
func less(a, b key) bool {
	if a.value != b.value {
		return a.value > b.value
	}
	return a.seq < b.seq
}

type node struct {
	id    int64
	key   key
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n, fresh *node) *node {
	if n == nil {
		return fresh
	}
	if less(fresh.key, n.key) {
		n.left = insert(n.left, fresh)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, fresh)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// position returns the 1-based rank of k using subtree sizes.
func position(n *node, k key) int {
	pos := 0
	for n != nil {
		switch {
		case k == n.key:
			return pos + nsize(n.left) + 1
		case less(k, n.key):
			n = n.left
		default:
			pos += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, Entry{Rank: len(*out) + 1, EntityID: n.id, Value: n.key.value})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// TreapStore is a concurrency-safe Index.
type TreapStore struct {
	mu   sync.RWMutex
	root *node
	byID map[int64]key
	seq  uint64
	prio func() uint64
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		byID: make(map[int64]key),
		prio: rand.Uint64, //nolint:gosec // balancing only
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert implements Index.Insert in O(log n) expected time.
func (s *TreapStore) Insert(_ context.Context, id int64, value int64) (bool, error) {
	if value < 0 {
		return false, ErrNegative
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; ok {
		return false, nil
	}
	k := key{value: value, seq: s.seq}
	s.seq++
	s.byID[id] = k
	s.root = insert(s.root, &node{id: id, key: k, prio: s.prio(), size: 1})
	return true, nil
}

// Rank implements Index.Rank in O(log n) expected time.
func (s *TreapStore) Rank(_ context.Context, id int64) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.byID[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{Rank: position(s.root, k), EntityID: id, Value: k.value}, nil
}

// TopN implements Index.TopN.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(s.byID)))
	collectTopN(s.root, n, &out)
	return out, nil
}

// Count implements Index.Count.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
