package ledger_test

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
	"github.com/okian/rollbot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

// memPersister records saved snapshots and can be told to fail.
type memPersister struct {
	mu    sync.Mutex
	saves []model.Snapshot
	fail  error
}

func (m *memPersister) Save(_ context.Context, snap model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.saves = append(m.saves, snap)
	return nil
}

func (m *memPersister) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saves)
}

func (m *memPersister) last() model.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[len(m.saves)-1]
}

type fixedRand struct{ n int }

func (f fixedRand) IntN(int) int { return f.n }

func newCatalog(ids ...int64) *catalog.Catalog {
	c := catalog.New()
	for _, id := range ids {
		_, _, _ = c.Append(context.Background(), model.Entity{ID: id, Name: "e", Value: id * 10})
	}
	return c
}

func first(pool []model.Entity) model.Entity { return pool[0] }

func TestLedger_Balances(t *testing.T) {
	Convey("Given an empty ledger", t, func() {
		ctx := context.Background()
		store := &memPersister{}
		l := ledger.New(newCatalog(), store)

		Convey("When reading an unknown user's balance", func() {
			Convey("Then it is zero and nothing is written", func() {
				So(l.Balance("u1"), ShouldEqual, 0)
				So(store.count(), ShouldEqual, 0)
			})
		})

		Convey("When crediting and debiting", func() {
			b1, err1 := l.Credit(ctx, "u1", 100)
			b2, err2 := l.Debit(ctx, "u1", 250)

			Convey("Then the balance may go negative and each step is persisted", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(b1, ShouldEqual, 100)
				So(b2, ShouldEqual, -150)
				So(l.Balance("u1"), ShouldEqual, -150)
				So(store.count(), ShouldEqual, 2)
				So(store.last().Balances["u1"], ShouldEqual, -150)
			})
		})

		Convey("When the amount is not positive", func() {
			_, err := l.Credit(ctx, "u1", 0)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, ledger.ErrInvalidAmount), ShouldBeTrue)
			})
		})
	})
}

func TestLedger_TryClaim(t *testing.T) {
	Convey("Given a ledger over three entities", t, func() {
		ctx := context.Background()
		store := &memPersister{}
		l := ledger.New(newCatalog(1, 2, 3), store)

		Convey("When an eligible user claims an unowned entity", func() {
			out, err := l.TryClaim(ctx, 2, "alice")

			Convey("Then ownership and the claim flag are written together", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, ledger.Accepted)
				owner, ok := l.OwnerOf(2)
				So(ok, ShouldBeTrue)
				So(owner, ShouldEqual, "alice")
				So(l.Account("alice").ClaimUsed, ShouldBeTrue)
				snap := store.last()
				So(snap.Ownership[2], ShouldEqual, "alice")
				So(snap.Accounts["alice"].ClaimUsed, ShouldBeTrue)
			})

			Convey("And another user claims the same entity", func() {
				out, _ := l.TryClaim(ctx, 2, "bob")

				Convey("Then it is AlreadyOwned and bob's state is untouched", func() {
					So(out, ShouldEqual, ledger.AlreadyOwned)
					So(errors.Is(out.Err(), ledger.ErrAlreadyOwned), ShouldBeTrue)
					So(l.Account("bob").ClaimUsed, ShouldBeFalse)
				})
			})

			Convey("And the same user claims a second entity", func() {
				out, _ := l.TryClaim(ctx, 3, "alice")

				Convey("Then it is on cooldown until the claim reset", func() {
					So(out, ShouldEqual, ledger.ClaimOnCooldown)
					_, owned := l.OwnerOf(3)
					So(owned, ShouldBeFalse)

					swept, err := l.ResetClaims(ctx)
					So(err, ShouldBeNil)
					So(swept, ShouldEqual, 1)
					out, _ = l.TryClaim(ctx, 3, "alice")
					So(out, ShouldEqual, ledger.Accepted)
				})
			})
		})

		Convey("When the entity is not in the catalog", func() {
			out, _ := l.TryClaim(ctx, 99, "alice")

			Convey("Then it is UnknownEntity and the claim is not spent", func() {
				So(out, ShouldEqual, ledger.UnknownEntity)
				So(l.Account("alice").ClaimUsed, ShouldBeFalse)
			})
		})

		Convey("When two eligible users race for the same entity", func() {
			var wg sync.WaitGroup
			results := make([]ledger.Outcome, 2)
			start := make(chan struct{})
			for i, user := range []string{"alice", "bob"} {
				wg.Add(1)
				go func(i int, user string) {
					defer wg.Done()
					<-start
					results[i], _ = l.TryClaim(ctx, 1, user)
				}(i, user)
			}
			close(start)
			wg.Wait()

			Convey("Then exactly one wins and the other is AlreadyOwned", func() {
				accepted, lost := 0, 0
				for _, r := range results {
					switch r {
					case ledger.Accepted:
						accepted++
					case ledger.AlreadyOwned:
						lost++
					}
				}
				So(accepted, ShouldEqual, 1)
				So(lost, ShouldEqual, 1)
			})
		})

		Convey("When many users race for every entity", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			wins := map[int64]int{}
			for u := 0; u < 20; u++ {
				wg.Add(1)
				go func(u int) {
					defer wg.Done()
					user := string(rune('a' + u))
					for id := int64(1); id <= 3; id++ {
						if out, _ := l.TryClaim(ctx, id, user); out == ledger.Accepted {
							mu.Lock()
							wins[id]++
							mu.Unlock()
						}
					}
				}(u)
			}
			wg.Wait()

			Convey("Then no entity has more than one owner", func() {
				for id := int64(1); id <= 3; id++ {
					So(wins[id], ShouldEqual, 1)
				}
				So(l.Claims(), ShouldHaveLength, 3)
			})
		})
	})
}

func TestLedger_DrawRoll(t *testing.T) {
	Convey("Given a ledger with two entities", t, func() {
		ctx := context.Background()
		store := &memPersister{}
		l := ledger.New(newCatalog(1, 2), store, ledger.WithRollsPerReset(2))

		Convey("When a new user rolls", func() {
			drawn, left, err := l.DrawRoll(ctx, "alice", first)

			Convey("Then one roll is spent and an unclaimed entity drawn", func() {
				So(err, ShouldBeNil)
				So(drawn.ID, ShouldEqual, 1)
				So(left, ShouldEqual, 1)
				So(store.last().Accounts["alice"].RollsRemaining, ShouldEqual, 1)
			})
		})

		Convey("When owned entities exist", func() {
			_, _ = l.TryClaim(ctx, 1, "bob")
			drawn, _, err := l.DrawRoll(ctx, "alice", first)

			Convey("Then they are never drawn", func() {
				So(err, ShouldBeNil)
				So(drawn.ID, ShouldEqual, 2)
			})
		})

		Convey("When the allowance is spent", func() {
			_, _, _ = l.DrawRoll(ctx, "alice", first)
			_, _, _ = l.DrawRoll(ctx, "alice", first)
			picked := false
			_, left, err := l.DrawRoll(ctx, "alice", func(pool []model.Entity) model.Entity {
				picked = true
				return pool[0]
			})

			Convey("Then the roll fails before drawing", func() {
				So(errors.Is(err, ledger.ErrNoRolls), ShouldBeTrue)
				So(picked, ShouldBeFalse)
				So(left, ShouldEqual, 0)
			})

			Convey("And after any number of resets the allowance is full", func() {
				for i := 0; i < 3; i++ {
					_, err := l.ResetRolls(ctx)
					So(err, ShouldBeNil)
				}
				So(l.Account("alice").RollsRemaining, ShouldEqual, 2)
			})
		})

		Convey("When every entity is owned", func() {
			_, _ = l.TryClaim(ctx, 1, "bob")
			_, _ = l.TryClaim(ctx, 2, "carol")
			_, left, err := l.DrawRoll(ctx, "alice", first)

			Convey("Then nothing is drawn and no roll is spent", func() {
				So(errors.Is(err, ledger.ErrNothingToDraw), ShouldBeTrue)
				So(left, ShouldEqual, 2)
				So(l.Account("alice").RollsRemaining, ShouldEqual, 2)
			})
		})
	})
}

func TestLedger_Daily(t *testing.T) {
	Convey("Given a ledger with a controllable clock", t, func() {
		ctx := context.Background()
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		l := ledger.New(newCatalog(), &memPersister{},
			ledger.WithClock(func() time.Time { return now }),
			ledger.WithRand(fixedRand{n: 41}),
			ledger.WithDaily(24*time.Hour, 1000),
		)

		Convey("When a user claims the daily reward", func() {
			res, err := l.Daily(ctx, "alice")

			Convey("Then the reward is credited", func() {
				So(err, ShouldBeNil)
				So(res.Reward, ShouldEqual, 42)
				So(res.Balance, ShouldEqual, 42)
				So(res.Next.Equal(now.Add(24*time.Hour)), ShouldBeTrue)
			})

			Convey("And claims again within the cooldown", func() {
				now = now.Add(23 * time.Hour)
				res, err := l.Daily(ctx, "alice")

				Convey("Then it is rejected with the next claim time", func() {
					So(errors.Is(err, ledger.ErrDailyCooldown), ShouldBeTrue)
					So(res.Next.Equal(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)), ShouldBeTrue)
					So(l.Balance("alice"), ShouldEqual, 42)
				})
			})

			Convey("And claims again after the cooldown", func() {
				now = now.Add(24 * time.Hour)
				res, err := l.Daily(ctx, "alice")

				Convey("Then the second reward is added", func() {
					So(err, ShouldBeNil)
					So(res.Balance, ShouldEqual, 84)
				})
			})
		})
	})
}

func TestLedger_Persistence(t *testing.T) {
	Convey("Given a ledger whose store fails", t, func() {
		ctx := context.Background()
		store := &memPersister{fail: errors.New("read-only file system")}
		l := ledger.New(newCatalog(1), store)

		Convey("When a claim is accepted", func() {
			out, err := l.TryClaim(ctx, 1, "alice")

			Convey("Then memory stays authoritative and the ledger is dirty", func() {
				So(out, ShouldEqual, ledger.Accepted)
				So(errors.Is(err, ledger.ErrPersistFailure), ShouldBeTrue)
				owner, _ := l.OwnerOf(1)
				So(owner, ShouldEqual, "alice")
				So(l.Dirty(), ShouldBeTrue)
				So(l.Stats().Dirty, ShouldBeTrue)
			})

			Convey("And the store recovers before a flush", func() {
				store.mu.Lock()
				store.fail = nil
				store.mu.Unlock()
				err := l.Flush(ctx, false)

				Convey("Then the pending state is written", func() {
					So(err, ShouldBeNil)
					So(l.Dirty(), ShouldBeFalse)
					So(store.last().Ownership[1], ShouldEqual, "alice")
				})
			})
		})
	})

	Convey("Given a clean ledger", t, func() {
		store := &memPersister{}
		l := ledger.New(newCatalog(1), store)

		Convey("When flushing without force", func() {
			So(l.Flush(context.Background(), false), ShouldBeNil)

			Convey("Then nothing is written", func() {
				So(store.count(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a restored snapshot", t, func() {
		snap := model.NewSnapshot()
		snap.Ownership[3] = "bob"
		snap.Ownership[1] = "bob"
		snap.Balances["bob"] = 7
		snap.Accounts["bob"] = model.Account{RollsRemaining: 4, ClaimUsed: true}
		l := ledger.New(newCatalog(1, 2, 3), &memPersister{})
		l.Restore(snap)

		Convey("Then the ledger reflects it and the snapshot round-trips", func() {
			So(l.Balance("bob"), ShouldEqual, 7)
			owned := l.Owned("bob")
			So(owned, ShouldHaveLength, 2)
			So(owned[0].ID, ShouldEqual, 1)
			So(owned[1].ID, ShouldEqual, 3)
			got := l.Snapshot()
			So(got.Ownership, ShouldResemble, snap.Ownership)
			So(got.Balances, ShouldResemble, snap.Balances)
			So(got.Accounts, ShouldResemble, snap.Accounts)
			So(got.Entities, ShouldHaveLength, 3)
		})
	})
}
