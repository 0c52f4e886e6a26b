// Package ledger is the authoritative in-memory economy state: who owns
// which entity, user balances and per-user cooldown accounts.
//
// Every mutation runs under one mutex and writes a full snapshot through
// the Persister before returning. The claim check-and-set in TryClaim is
// therefore a single uninterrupted step and at most one user can ever own
// an entity, even with parallel callers.
package ledger

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/okian/rollbot/internal/domain/model"
	"github.com/okian/rollbot/pkg/logger"
	"github.com/okian/rollbot/pkg/metrics"
)

const (
	defaultDailyCooldown = 24 * time.Hour
	defaultDailyMax      = 1000
)

// Persister is the persistence collaborator. Save receives a private copy.
type Persister interface {
	Save(ctx context.Context, snap model.Snapshot) error
}

// Catalog is the read side of the entity catalog the ledger needs.
type Catalog interface {
	Get(id int64) (model.Entity, bool)
	Unclaimed(owned func(id int64) bool) []model.Entity
	All() []model.Entity
}

// Rand is the randomness source for daily rewards.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) } //nolint:gosec // game reward

// Claim is one ownership record.
type Claim struct {
	EntityID int64
	UserID   string
}

// Ledger owns ownership, balances and cooldown accounts.
type Ledger struct {
	mu        sync.Mutex
	catalog   Catalog
	persister Persister

	ownership map[int64]string
	balances  map[string]int64
	accounts  map[string]model.Account
	dirty     bool

	rollsPerReset int
	dailyCooldown time.Duration
	dailyMax      int
	now           func() time.Time
	rng           Rand
	logger        logger.Logger
}

// New creates an empty ledger with configuration options.
func New(cat Catalog, persister Persister, opts ...Option) *Ledger {
	l := &Ledger{
		catalog:       cat,
		persister:     persister,
		ownership:     make(map[int64]string),
		balances:      make(map[string]int64),
		accounts:      make(map[string]model.Account),
		rollsPerReset: model.DefaultRolls,
		dailyCooldown: defaultDailyCooldown,
		dailyMax:      defaultDailyMax,
		now:           time.Now,
		rng:           globalRand{},
		logger:        logger.Get().Named("ledger"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Restore replaces the ledger maps with those of snap. The catalog part of
// snap is ignored; it is loaded into the catalog separately.
func (l *Ledger) Restore(snap model.Snapshot) {
	snap = snap.Clone()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ownership = snap.Ownership
	l.balances = snap.Balances
	l.accounts = snap.Accounts
	l.dirty = false
	l.updateGauges()
}

// Balance returns the user's balance, 0 for unknown users.
func (l *Ledger) Balance(user string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[user]
}

// Credit adds amount to the user's balance and returns the new balance.
func (l *Ledger) Credit(ctx context.Context, user string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[user] += amount
	return l.balances[user], l.persistLocked(ctx)
}

// Debit subtracts amount from the user's balance. There is no overdraft
// check, balances may go negative.
func (l *Ledger) Debit(ctx context.Context, user string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[user] -= amount
	return l.balances[user], l.persistLocked(ctx)
}

// Account returns the user's cooldown account, creating the default one
// in memory on first use.
func (l *Ledger) Account(user string) model.Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.accountLocked(user)
}

func (l *Ledger) accountLocked(user string) *model.Account {
	acc, ok := l.accounts[user]
	if !ok {
		acc = model.NewAccount(l.rollsPerReset)
		l.accounts[user] = acc
		metrics.UpdateKnownUsers(len(l.accounts))
	}
	return &acc
}

func (l *Ledger) setAccountLocked(user string, acc *model.Account) {
	l.accounts[user] = *acc
}

// OwnerOf returns the owner of an entity.
func (l *Ledger) OwnerOf(id int64) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	owner, ok := l.ownership[id]
	return owner, ok
}

// Owned returns the user's entities in ascending id order.
func (l *Ledger) Owned(user string) []model.Entity {
	l.mu.Lock()
	ids := make([]int64, 0)
	for id, owner := range l.ownership {
		if owner == user {
			ids = append(ids, id)
		}
	}
	l.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]model.Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := l.catalog.Get(id); ok {
			out = append(out, e)
		}
	}
	return out
}

// Claims returns every ownership record in ascending entity id order.
func (l *Ledger) Claims() []Claim {
	l.mu.Lock()
	out := make([]Claim, 0, len(l.ownership))
	for id, owner := range l.ownership {
		out = append(out, Claim{EntityID: id, UserID: owner})
	}
	l.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// DrawRoll spends one roll of user and picks an unclaimed entity with pick.
// Both happen under the ledger lock. It fails with ErrNoRolls before
// drawing when the allowance is spent and with ErrNothingToDraw, without
// spending a roll, when every entity is owned.
func (l *Ledger) DrawRoll(ctx context.Context, user string, pick func(pool []model.Entity) model.Entity) (model.Entity, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc := l.accountLocked(user)
	if acc.RollsRemaining <= 0 {
		return model.Entity{}, 0, ErrNoRolls
	}
	pool := l.catalog.Unclaimed(func(id int64) bool {
		_, owned := l.ownership[id]
		return owned
	})
	if len(pool) == 0 {
		return model.Entity{}, acc.RollsRemaining, ErrNothingToDraw
	}
	drawn := pick(pool)
	acc.RollsRemaining--
	l.setAccountLocked(user, acc)
	return drawn, acc.RollsRemaining, l.persistLocked(ctx)
}

// TryClaim assigns entityID to user when it is unowned, the user has not
// claimed this period, and the entity exists, checked in that order. The
// ownership write and the claim flag are set together. A non-nil error
// only reports a persistence failure; the outcome is applied in memory
// either way.
func (l *Ledger) TryClaim(ctx context.Context, entityID int64, user string) (Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, owned := l.ownership[entityID]; owned {
		return AlreadyOwned, nil
	}
	acc := l.accountLocked(user)
	if acc.ClaimUsed {
		return ClaimOnCooldown, nil
	}
	if _, ok := l.catalog.Get(entityID); !ok {
		return UnknownEntity, nil
	}
	l.ownership[entityID] = user
	acc.ClaimUsed = true
	l.setAccountLocked(user, acc)
	metrics.UpdateOwnedEntities(len(l.ownership))
	return Accepted, l.persistLocked(ctx)
}

// ResetRolls restores the roll allowance of every known user and returns
// how many accounts were swept.
func (l *Ledger) ResetRolls(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for user, acc := range l.accounts {
		acc.RollsRemaining = l.rollsPerReset
		l.accounts[user] = acc
	}
	return len(l.accounts), l.persistLocked(ctx)
}

// ResetClaims clears the claim flag of every known user.
func (l *Ledger) ResetClaims(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for user, acc := range l.accounts {
		acc.ClaimUsed = false
		l.accounts[user] = acc
	}
	return len(l.accounts), l.persistLocked(ctx)
}

// DailyResult describes a daily claim. On ErrDailyCooldown only Next is set.
type DailyResult struct {
	Reward  int64
	Balance int64
	Next    time.Time
}

// Daily grants a random reward in [1, max] once per cooldown period.
func (l *Ledger) Daily(ctx context.Context, user string) (DailyResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	acc := l.accountLocked(user)
	if !acc.LastDailyClaimedAt.IsZero() {
		next := acc.LastDailyClaimedAt.Add(l.dailyCooldown)
		if now.Before(next) {
			return DailyResult{Next: next}, ErrDailyCooldown
		}
	}
	reward := int64(l.rng.IntN(l.dailyMax) + 1)
	l.balances[user] += reward
	acc.LastDailyClaimedAt = now
	l.setAccountLocked(user, acc)
	return DailyResult{
		Reward:  reward,
		Balance: l.balances[user],
		Next:    now.Add(l.dailyCooldown),
	}, l.persistLocked(ctx)
}

// Snapshot returns a deep copy of the whole state including the catalog.
func (l *Ledger) Snapshot() model.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() model.Snapshot {
	snap := model.Snapshot{
		Ownership: l.ownership,
		Balances:  l.balances,
		Accounts:  l.accounts,
	}.Clone()
	snap.Entities = l.catalog.All()
	return snap
}

// Flush writes a snapshot. Periodic callers use it to retry after a
// failed write-through; force also writes a clean ledger.
func (l *Ledger) Flush(ctx context.Context, force bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.dirty && !force {
		return nil
	}
	return l.persistLocked(ctx)
}

// Dirty reports whether the last write failed.
func (l *Ledger) Dirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirty
}

// Stats is a point-in-time size summary.
type Stats struct {
	Users int
	Owned int
	Dirty bool
}

// Stats returns counts for the stats endpoint.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{Users: len(l.accounts), Owned: len(l.ownership), Dirty: l.dirty}
}

// persistLocked writes the full snapshot. On failure the in-memory state is
// kept and marked dirty so a later Flush retries.
func (l *Ledger) persistLocked(ctx context.Context) error {
	if l.persister == nil {
		return nil
	}
	start := time.Now()
	if err := l.persister.Save(ctx, l.snapshotLocked()); err != nil {
		l.dirty = true
		metrics.RecordPersistFailure()
		metrics.RecordErrorByComponent("ledger", "persist")
		l.logger.Error(ctx, "snapshot write failed, state kept in memory", logger.Error(err))
		return fmt.Errorf("%w: %w", ErrPersistFailure, err)
	}
	l.dirty = false
	metrics.RecordPersistWrite(float64(time.Since(start).Milliseconds()))
	return nil
}

func (l *Ledger) updateGauges() {
	metrics.UpdateKnownUsers(len(l.accounts))
	metrics.UpdateOwnedEntities(len(l.ownership))
}
