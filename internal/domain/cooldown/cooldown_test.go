package cooldown_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/okian/rollbot/internal/domain/cooldown"
	"github.com/okian/rollbot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

type fakeResetter struct {
	mu          sync.Mutex
	rollResets  int
	claimResets int
	err         error
}

func (f *fakeResetter) ResetRolls(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rollResets++
	return 3, f.err
}

func (f *fakeResetter) ResetClaims(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimResets++
	return 3, f.err
}

// recordingSubmitter runs jobs inline and remembers their names.
type recordingSubmitter struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingSubmitter) Submit(name string, run func(ctx context.Context) error) bool {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
	_ = run(context.Background())
	return true
}

func (r *recordingSubmitter) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func TestFormatRemaining(t *testing.T) {
	Convey("Given remaining durations", t, func() {
		Convey("When at least an hour is left", func() {
			Convey("Then hours and minutes are shown", func() {
				So(cooldown.FormatRemaining(2*time.Hour+5*time.Minute+59*time.Second), ShouldEqual, "**2** hours, **5** minutes left")
			})
		})

		Convey("When less than an hour is left", func() {
			Convey("Then minutes and seconds are shown", func() {
				So(cooldown.FormatRemaining(29*time.Minute+1500*time.Millisecond), ShouldEqual, "**29** minutes, **1** seconds left")
			})
		})

		Convey("When less than a minute is left", func() {
			Convey("Then only seconds are shown", func() {
				So(cooldown.FormatRemaining(42*time.Second), ShouldEqual, "**42** seconds left")
				So(cooldown.FormatRemaining(300*time.Millisecond), ShouldEqual, "**0** seconds left")
			})
		})

		Convey("When the duration is negative", func() {
			Convey("Then it renders as zero seconds", func() {
				So(cooldown.FormatRemaining(-time.Second), ShouldEqual, "**0** seconds left")
			})
		})
	})
}

func TestScheduler_NextFire(t *testing.T) {
	Convey("Given a scheduler in a fixed zone", t, func() {
		zone := time.FixedZone("UTC+1", 3600)
		s, err := cooldown.New(&fakeResetter{}, zone, "*/30 * * * *", "0 * * * *")
		So(err, ShouldBeNil)

		now := time.Date(2026, 5, 4, 10, 12, 30, 0, zone)

		Convey("When asking for the next roll reset", func() {
			next := s.NextRollReset(now)

			Convey("Then it is the next half hour in the zone", func() {
				So(next.Equal(time.Date(2026, 5, 4, 10, 30, 0, 0, zone)), ShouldBeTrue)
			})
		})

		Convey("When asking for the next claim reset", func() {
			next := s.NextClaimReset(now.UTC())

			Convey("Then it is the next full hour in the zone", func() {
				So(next.Equal(time.Date(2026, 5, 4, 11, 0, 0, 0, zone)), ShouldBeTrue)
			})
		})

		Convey("When now is exactly on a reset", func() {
			next := s.NextRollReset(time.Date(2026, 5, 4, 10, 30, 0, 0, zone))

			Convey("Then the following reset is returned", func() {
				So(next.Equal(time.Date(2026, 5, 4, 11, 0, 0, 0, zone)), ShouldBeTrue)
			})
		})
	})
}

func TestScheduler_Ticks(t *testing.T) {
	Convey("Given a scheduler over a resetter", t, func() {
		ctx := context.Background()
		res := &fakeResetter{}
		s, err := cooldown.New(res, time.UTC, "*/30 * * * *", "0 * * * *")
		So(err, ShouldBeNil)

		Convey("When the roll and claim ticks run", func() {
			So(s.TickRolls(ctx), ShouldBeNil)
			So(s.TickRolls(ctx), ShouldBeNil)
			So(s.TickClaims(ctx), ShouldBeNil)

			Convey("Then each job sweeps independently", func() {
				So(res.rollResets, ShouldEqual, 2)
				So(res.claimResets, ShouldEqual, 1)
			})
		})

		Convey("When the sweep cannot be persisted", func() {
			res.err = errors.New("disk full")
			err := s.TickClaims(ctx)

			Convey("Then the error names the job", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, cooldown.JobClaimReset)
			})
		})
	})

	Convey("Given invalid cron expressions", t, func() {
		_, err := cooldown.New(&fakeResetter{}, time.UTC, "every half hour", "0 * * * *")

		Convey("Then construction fails", func() {
			So(errors.Is(err, cooldown.ErrInvalidSchedule), ShouldBeTrue)
		})
	})
}

func TestScheduler_Every(t *testing.T) {
	Convey("Given a started scheduler with a one second job", t, func() {
		sub := &recordingSubmitter{}
		s, err := cooldown.New(&fakeResetter{}, time.UTC, "*/30 * * * *", "0 * * * *", cooldown.WithSubmitter(sub))
		So(err, ShouldBeNil)

		fired := make(chan struct{}, 4)
		s.Every("flush", time.Second, func(context.Context) error {
			fired <- struct{}{}
			return nil
		})
		s.Start()

		Convey("When the interval elapses", func() {
			select {
			case <-fired:
			case <-time.After(3 * time.Second):
			}
			stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			stopErr := s.Stop(stopCtx)

			Convey("Then the job ran through the submitter", func() {
				So(stopErr, ShouldBeNil)
				So(sub.seen(), ShouldContain, "flush")
			})
		})
	})
}
