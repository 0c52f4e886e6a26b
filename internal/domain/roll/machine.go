// Package roll implements the roll/claim lifecycle:
// Drawn -> Presented -> {Claimed | Expired}.
//
// A roll spends one roll unit and draws a random unclaimed entity. Once
// the message carrying the claim affordance is out, the event is
// Presented and a fixed window opens. The first claim the ledger accepts
// closes the event as Claimed; rejected attempts leave the window open.
// Events past their deadline are collected by ExpireDue, driven by one
// periodic sweep rather than a timer per event.
package roll

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rollbot/internal/domain/ledger"
	"github.com/okian/rollbot/internal/domain/model"
	"github.com/okian/rollbot/pkg/logger"
	"github.com/okian/rollbot/pkg/metrics"
)

const defaultWindow = 30 * time.Second

// Hearts are the claim button glyphs.
var Hearts = []string{"💕", "❤️", "💖", "💓", "💞"}

// Rand is the randomness source for draws and presentation.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) } //nolint:gosec // game draw

// Ledger is the part of the ledger the machine drives.
type Ledger interface {
	DrawRoll(ctx context.Context, user string, pick func(pool []model.Entity) model.Entity) (model.Entity, int, error)
	TryClaim(ctx context.Context, entityID int64, user string) (ledger.Outcome, error)
}

// Machine tracks live roll events.
type Machine struct {
	mu        sync.Mutex
	ledger    Ledger
	events    map[string]*Event
	byMessage map[string]string // message id -> event id
	window    time.Duration
	now       func() time.Time
	rng       Rand
	logger    logger.Logger
}

// New creates a machine with configuration options.
func New(l Ledger, opts ...Option) *Machine {
	m := &Machine{
		ledger:    l,
		events:    make(map[string]*Event),
		byMessage: make(map[string]string),
		window:    defaultWindow,
		now:       time.Now,
		rng:       globalRand{},
		logger:    logger.Get().Named("roll"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Roll draws an entity for user. It returns the Drawn event and the rolls
// left. ErrRollCooldown is returned without drawing when the allowance is
// spent; ErrNoEntitiesAvailable when everything is owned.
func (m *Machine) Roll(ctx context.Context, user, channel string) (Event, int, error) {
	pick := func(pool []model.Entity) model.Entity { return pool[m.rng.IntN(len(pool))] }
	entity, left, err := m.ledger.DrawRoll(ctx, user, pick)
	switch {
	case errors.Is(err, ledger.ErrNoRolls):
		metrics.RecordRollRejected("cooldown")
		return Event{}, 0, ErrRollCooldown
	case errors.Is(err, ledger.ErrNothingToDraw):
		metrics.RecordRollRejected("exhausted")
		return Event{}, left, ErrNoEntitiesAvailable
	case err != nil && !errors.Is(err, ledger.ErrPersistFailure):
		return Event{}, left, fmt.Errorf("draw: %w", err)
	}

	ev := &Event{
		ID:        uuid.NewString(),
		Entity:    entity,
		RollerID:  user,
		ChannelID: channel,
		Emoji:     Hearts[m.rng.IntN(len(Hearts))],
		Color:     m.rng.IntN(0x1000000),
		CreatedAt: m.now(),
		State:     Drawn,
	}
	m.mu.Lock()
	m.events[ev.ID] = ev
	live := len(m.events)
	m.mu.Unlock()

	metrics.RecordRoll()
	metrics.UpdateRollEventsLive(live)
	m.logger.Debug(ctx, "entity drawn",
		logger.String("event_id", ev.ID),
		logger.Int64("entity_id", entity.ID),
		logger.Int("rolls_left", left),
	)
	return *ev, left, nil
}

// Present records the message carrying the claim affordance and opens
// the claim window.
func (m *Machine) Present(eventID, messageID string) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	if !ok || ev.State != Drawn {
		return Event{}, ErrUnknownEvent
	}
	ev.MessageID = messageID
	ev.ExpiresAt = m.now().Add(m.window)
	ev.State = Presented
	m.byMessage[messageID] = eventID
	return *ev, nil
}

// Discard drops a Drawn event whose message could not be sent. The roll
// unit stays spent.
func (m *Machine) Discard(eventID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := m.events[eventID]; ok && ev.State == Drawn {
		delete(m.events, eventID)
		metrics.RecordRollEventClosed("discarded")
		metrics.UpdateRollEventsLive(len(m.events))
	}
}

// ClaimResult is the answer to a claim attempt.
type ClaimResult struct {
	Event   Event
	Outcome ledger.Outcome
}

// Claim handles a click on the claim affordance of messageID. Attempts on
// an expired or unknown event fail with ErrWindowClosed and change
// nothing. Once an event is Claimed, later attempts report AlreadyOwned.
// A persistence failure is logged by the ledger and does not undo an
// accepted claim.
func (m *Machine) Claim(ctx context.Context, messageID, customID, user string) (ClaimResult, error) {
	entityID, err := ParseCustomID(customID)
	if err != nil {
		return ClaimResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	eventID, ok := m.byMessage[messageID]
	if !ok {
		metrics.RecordClaimRejected("window_closed")
		return ClaimResult{}, ErrWindowClosed
	}
	ev := m.events[eventID]
	if ev.Entity.ID != entityID {
		return ClaimResult{}, ErrBadCustomID
	}
	if ev.State == Expired || !m.now().Before(ev.ExpiresAt) {
		metrics.RecordClaimRejected("window_closed")
		return ClaimResult{Event: *ev}, ErrWindowClosed
	}
	if ev.State == Claimed {
		metrics.RecordClaimRejected(ledger.AlreadyOwned.String())
		return ClaimResult{Event: *ev, Outcome: ledger.AlreadyOwned}, nil
	}

	outcome, err := m.ledger.TryClaim(ctx, entityID, user)
	if err != nil && !errors.Is(err, ledger.ErrPersistFailure) {
		return ClaimResult{Event: *ev}, fmt.Errorf("claim %d: %w", entityID, err)
	}
	if outcome != ledger.Accepted {
		metrics.RecordClaimRejected(outcome.String())
		return ClaimResult{Event: *ev, Outcome: outcome}, nil
	}

	ev.State = Claimed
	ev.ClaimedBy = user
	metrics.RecordClaim()
	m.logger.Info(ctx, "entity claimed",
		logger.String("event_id", ev.ID),
		logger.Int64("entity_id", entityID),
		logger.String("user_id", user),
	)
	return ClaimResult{Event: *ev, Outcome: ledger.Accepted}, nil
}

// ExpireDue closes every presented event whose window has elapsed and
// returns them so their affordances can be disabled. Unclaimed events end
// Expired; claimed ones keep their state.
func (m *Machine) ExpireDue(now time.Time) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []Event
	for id, ev := range m.events {
		if ev.State == Drawn {
			// never presented; drop it once a full window has passed
			if now.Sub(ev.CreatedAt) >= m.window {
				delete(m.events, id)
				metrics.RecordRollEventClosed("discarded")
			}
			continue
		}
		if now.Before(ev.ExpiresAt) {
			continue
		}
		if ev.State == Presented {
			ev.State = Expired
		}
		metrics.RecordRollEventClosed(ev.State.String())
		due = append(due, *ev)
		delete(m.events, id)
		delete(m.byMessage, ev.MessageID)
	}
	metrics.UpdateRollEventsLive(len(m.events))
	return due
}

// Get returns a copy of the event with id.
func (m *Machine) Get(id string) (Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return Event{}, false
	}
	return *ev, true
}

// Live returns the number of events not yet collected.
func (m *Machine) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}
