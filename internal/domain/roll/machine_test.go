package roll_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/okian/rollbot/internal/domain/catalog"
	"github.com/okian/rollbot/internal/domain/ledger"
	"github.com/okian/rollbot/internal/domain/model"
	"github.com/okian/rollbot/internal/domain/roll"
	"github.com/okian/rollbot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

type zeroRand struct{}

func (zeroRand) IntN(int) int { return 0 }

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func setup(rolls int, ids ...int64) (*roll.Machine, *ledger.Ledger, *clock) {
	ctx := context.Background()
	cat := catalog.New()
	for _, id := range ids {
		_, _, _ = cat.Append(ctx, model.Entity{ID: id, Name: "entity", Value: 100, Gender: model.GenderOther})
	}
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := ledger.New(cat, nil, ledger.WithRollsPerReset(rolls))
	m := roll.New(l, roll.WithClock(clk.Now), roll.WithRand(zeroRand{}), roll.WithWindow(30*time.Second))
	return m, l, clk
}

func TestCustomID(t *testing.T) {
	Convey("Given claim affordance ids", t, func() {
		Convey("Then an entity id round-trips", func() {
			So(roll.CustomID(12345), ShouldEqual, "claim_12345")
			id, err := roll.ParseCustomID("claim_12345")
			So(err, ShouldBeNil)
			So(id, ShouldEqual, 12345)
		})

		Convey("Then foreign ids are rejected", func() {
			_, err := roll.ParseCustomID("pagenext")
			So(errors.Is(err, roll.ErrBadCustomID), ShouldBeTrue)
			_, err = roll.ParseCustomID("claim_abc")
			So(errors.Is(err, roll.ErrBadCustomID), ShouldBeTrue)
		})
	})
}

func TestMachine_Roll(t *testing.T) {
	Convey("Given a machine with one roll per reset", t, func() {
		ctx := context.Background()
		m, l, _ := setup(1, 1, 2)

		Convey("When the user rolls", func() {
			ev, left, err := m.Roll(ctx, "alice", "chan")

			Convey("Then an unclaimed entity is drawn and a roll spent", func() {
				So(err, ShouldBeNil)
				So(ev.State, ShouldEqual, roll.Drawn)
				So(ev.Entity.ID, ShouldEqual, 1)
				So(ev.Emoji, ShouldEqual, roll.Hearts[0])
				So(ev.ID, ShouldNotBeEmpty)
				So(left, ShouldEqual, 0)
				So(m.Live(), ShouldEqual, 1)
			})

			Convey("And rolls again with no allowance", func() {
				_, _, err := m.Roll(ctx, "alice", "chan")

				Convey("Then it is a roll cooldown and nothing is drawn", func() {
					So(errors.Is(err, roll.ErrRollCooldown), ShouldBeTrue)
					So(m.Live(), ShouldEqual, 1)
				})
			})
		})

		Convey("When every entity is owned", func() {
			_, _ = l.TryClaim(ctx, 1, "bob")
			_, _ = l.ResetClaims(ctx)
			_, _ = l.TryClaim(ctx, 2, "bob")
			_, left, err := m.Roll(ctx, "alice", "chan")

			Convey("Then NoEntitiesAvailable is returned and the roll kept", func() {
				So(errors.Is(err, roll.ErrNoEntitiesAvailable), ShouldBeTrue)
				So(left, ShouldEqual, 1)
			})
		})
	})
}

func TestMachine_Claim(t *testing.T) {
	Convey("Given a presented roll event", t, func() {
		ctx := context.Background()
		m, l, clk := setup(8, 7)
		ev, _, err := m.Roll(ctx, "alice", "chan")
		So(err, ShouldBeNil)
		ev, err = m.Present(ev.ID, "msg-1")
		So(err, ShouldBeNil)
		So(ev.State, ShouldEqual, roll.Presented)
		So(ev.ExpiresAt.Equal(clk.Now().Add(30*time.Second)), ShouldBeTrue)

		Convey("When an eligible user claims within the window", func() {
			res, err := m.Claim(ctx, "msg-1", "claim_7", "bob")

			Convey("Then the event is claimed and ownership written", func() {
				So(err, ShouldBeNil)
				So(res.Outcome, ShouldEqual, ledger.Accepted)
				So(res.Event.State, ShouldEqual, roll.Claimed)
				So(res.Event.ClaimedBy, ShouldEqual, "bob")
				owner, _ := l.OwnerOf(7)
				So(owner, ShouldEqual, "bob")
			})

			Convey("And a second user clicks afterwards", func() {
				res, err := m.Claim(ctx, "msg-1", "claim_7", "carol")

				Convey("Then they are told it is already owned", func() {
					So(err, ShouldBeNil)
					So(res.Outcome, ShouldEqual, ledger.AlreadyOwned)
					So(l.Account("carol").ClaimUsed, ShouldBeFalse)
				})
			})
		})

		Convey("When the window has elapsed", func() {
			clk.Advance(30 * time.Second)
			_, err := m.Claim(ctx, "msg-1", "claim_7", "bob")

			Convey("Then the attempt is a no-op rejection", func() {
				So(errors.Is(err, roll.ErrWindowClosed), ShouldBeTrue)
				_, owned := l.OwnerOf(7)
				So(owned, ShouldBeFalse)
			})
		})

		Convey("When the click names another entity", func() {
			_, err := m.Claim(ctx, "msg-1", "claim_8", "bob")

			Convey("Then it is rejected as malformed", func() {
				So(errors.Is(err, roll.ErrBadCustomID), ShouldBeTrue)
			})
		})

		Convey("When the message is unknown", func() {
			_, err := m.Claim(ctx, "msg-404", "claim_7", "bob")

			Convey("Then the window is reported closed", func() {
				So(errors.Is(err, roll.ErrWindowClosed), ShouldBeTrue)
			})
		})
	})
}

func TestMachine_ClaimRejectionsKeepWindowOpen(t *testing.T) {
	Convey("Given two presented events and a user who already claimed", t, func() {
		ctx := context.Background()
		m, l, _ := setup(8, 1, 2)

		first, _, _ := m.Roll(ctx, "alice", "chan")
		_, _ = m.Present(first.ID, "msg-1")
		res, err := m.Claim(ctx, "msg-1", roll.CustomID(first.Entity.ID), "bob")
		So(err, ShouldBeNil)
		So(res.Outcome, ShouldEqual, ledger.Accepted)

		second, _, _ := m.Roll(ctx, "alice", "chan")
		_, _ = m.Present(second.ID, "msg-2")

		Convey("When the cooldown user clicks the second event", func() {
			res, err := m.Claim(ctx, "msg-2", roll.CustomID(second.Entity.ID), "bob")

			Convey("Then the claim is on cooldown and the event stays open", func() {
				So(err, ShouldBeNil)
				So(res.Outcome, ShouldEqual, ledger.ClaimOnCooldown)
				got, _ := m.Get(second.ID)
				So(got.State, ShouldEqual, roll.Presented)
			})

			Convey("And another eligible user still wins it", func() {
				res, err := m.Claim(ctx, "msg-2", roll.CustomID(second.Entity.ID), "carol")
				So(err, ShouldBeNil)
				So(res.Outcome, ShouldEqual, ledger.Accepted)
				owner, _ := l.OwnerOf(second.Entity.ID)
				So(owner, ShouldEqual, "carol")
			})
		})
	})
}

func TestMachine_ExpireDue(t *testing.T) {
	Convey("Given events at different stages", t, func() {
		ctx := context.Background()
		m, l, clk := setup(8, 1, 2, 3)

		won, _, _ := m.Roll(ctx, "alice", "chan")
		_, _ = m.Present(won.ID, "msg-won")
		_, _ = m.Claim(ctx, "msg-won", roll.CustomID(won.Entity.ID), "bob")
		open, _, _ := m.Roll(ctx, "alice", "chan")
		_, _ = m.Present(open.ID, "msg-open")

		Convey("When the sweep runs before the deadline", func() {
			due := m.ExpireDue(clk.Now().Add(29 * time.Second))

			Convey("Then nothing is collected", func() {
				So(due, ShouldBeEmpty)
				So(m.Live(), ShouldEqual, 2)
			})
		})

		Convey("When the sweep runs at the deadline", func() {
			due := m.ExpireDue(clk.Now().Add(30 * time.Second))

			Convey("Then both events are collected with their final state", func() {
				So(due, ShouldHaveLength, 2)
				states := map[string]roll.State{}
				for _, ev := range due {
					states[ev.ID] = ev.State
				}
				So(states[open.ID], ShouldEqual, roll.Expired)
				So(states[won.ID], ShouldEqual, roll.Claimed)
				So(m.Live(), ShouldEqual, 0)
			})

			Convey("And the expired entity can be drawn again", func() {
				_, owned := l.OwnerOf(open.Entity.ID)
				So(owned, ShouldBeFalse)
			})
		})

		Convey("When a drawn event is never presented", func() {
			stuck, _, _ := m.Roll(ctx, "alice", "chan")
			due := m.ExpireDue(clk.Now().Add(time.Minute))

			Convey("Then it is dropped without being reported", func() {
				_, ok := m.Get(stuck.ID)
				So(ok, ShouldBeFalse)
				for _, ev := range due {
					So(ev.ID, ShouldNotEqual, stuck.ID)
				}
			})
		})

		Convey("When a drawn event is discarded", func() {
			stuck, _, _ := m.Roll(ctx, "alice", "chan")
			m.Discard(stuck.ID)

			Convey("Then it is gone and cannot be presented", func() {
				_, err := m.Present(stuck.ID, "msg-late")
				So(errors.Is(err, roll.ErrUnknownEvent), ShouldBeTrue)
			})
		})
	})
}
