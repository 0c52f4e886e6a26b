package storage_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/rollbot/internal/adapters/storage"
	"github.com/okian/rollbot/internal/config"
	"github.com/okian/rollbot/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleSnapshot() model.Snapshot {
	snap := model.NewSnapshot()
	snap.Ownership[1] = "u1"
	snap.Ownership[7] = "u2"
	snap.Balances["u1"] = 1200
	snap.Balances["u2"] = -300
	snap.Accounts["u1"] = model.Account{
		RollsRemaining:     3,
		ClaimUsed:          true,
		LastDailyClaimedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	snap.Accounts["u2"] = model.Account{RollsRemaining: 8}
	snap.Entities = []model.Entity{
		{ID: 1, Name: "Levi", ImageRef: "https://img/1.png", Gender: model.GenderMale, SourceTitle: "Attack on Titan", Value: 1100},
		{ID: 7, Name: "Mikasa", ImageRef: "https://img/7.png", Gender: model.GenderOther, SourceTitle: "Attack on Titan", Value: 600},
	}
	return snap
}

func assertSnapshotsEqual(got, want model.Snapshot) {
	So(got.Ownership, ShouldResemble, want.Ownership)
	So(got.Balances, ShouldResemble, want.Balances)
	So(len(got.Accounts), ShouldEqual, len(want.Accounts))
	for user, acc := range want.Accounts {
		g := got.Accounts[user]
		So(g.RollsRemaining, ShouldEqual, acc.RollsRemaining)
		So(g.ClaimUsed, ShouldEqual, acc.ClaimUsed)
		So(g.LastDailyClaimedAt.Equal(acc.LastDailyClaimedAt), ShouldBeTrue)
	}
	So(got.Entities, ShouldResemble, want.Entities)
}

func TestJSONStore(t *testing.T) {
	Convey("Given a JSON store in an empty directory", t, func() {
		ctx := context.Background()
		dir := filepath.Join(t.TempDir(), "db")
		s, err := storage.NewJSONStore(dir)
		So(err, ShouldBeNil)
		Reset(func() { _ = s.Close() })

		Convey("Load of missing files yields an empty snapshot", func() {
			snap, err := s.Load(ctx)
			So(err, ShouldBeNil)
			So(snap.Ownership, ShouldBeEmpty)
			So(snap.Balances, ShouldBeEmpty)
			So(snap.Accounts, ShouldBeEmpty)
			So(snap.Entities, ShouldBeEmpty)
		})

		Convey("Save then Load returns the same state", func() {
			want := sampleSnapshot()
			So(s.Save(ctx, want), ShouldBeNil)

			got, err := s.Load(ctx)
			So(err, ShouldBeNil)
			assertSnapshotsEqual(got, want)

			Convey("and saving what was loaded leaves the files unchanged", func() {
				before, err := os.ReadFile(filepath.Join(dir, storage.UsersDocument))
				So(err, ShouldBeNil)
				So(s.Save(ctx, got), ShouldBeNil)
				after, err := os.ReadFile(filepath.Join(dir, storage.UsersDocument))
				So(err, ShouldBeNil)
				So(string(after), ShouldEqual, string(before))
			})
		})

		Convey("The users file keeps the chat bot layout", func() {
			So(s.Save(ctx, sampleSnapshot()), ShouldBeNil)
			raw, err := os.ReadFile(filepath.Join(dir, storage.UsersDocument))
			So(err, ShouldBeNil)

			var doc map[string]map[string]any
			So(json.Unmarshal(raw, &doc), ShouldBeNil)
			So(doc["claimedCharacters"]["1"], ShouldEqual, "u1")
			So(doc["balances"]["u2"], ShouldEqual, float64(-300))
			u1 := doc["cooldowns"]["u1"].(map[string]any)
			So(u1["rollsLeft"], ShouldEqual, float64(3))
			So(u1["claimed"], ShouldEqual, true)
			So(u1["lastDailyClaimed"], ShouldEqual, "2026-03-01T12:00:00Z")
			u2 := doc["cooldowns"]["u2"].(map[string]any)
			So(u2, ShouldNotContainKey, "lastDailyClaimed")
		})

		Convey("No temp files remain after a save", func() {
			So(s.Save(ctx, sampleSnapshot()), ShouldBeNil)
			matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
			So(err, ShouldBeNil)
			So(matches, ShouldBeEmpty)
		})

		Convey("A corrupt file fails to load", func() {
			So(os.WriteFile(filepath.Join(dir, storage.CharactersDocument), []byte("{not json"), 0o600), ShouldBeNil)
			_, err := s.Load(ctx)
			So(err, ShouldWrap, storage.ErrPersistence)
		})

		Convey("A non-numeric claimed id fails to load", func() {
			So(os.WriteFile(filepath.Join(dir, storage.UsersDocument), []byte(`{"claimedCharacters":{"abc":"u1"}}`), 0o600), ShouldBeNil)
			_, err := s.Load(ctx)
			So(err, ShouldWrap, storage.ErrPersistence)
		})
	})
}

func TestSQLiteStore(t *testing.T) {
	Convey("Given a SQLite store", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "nested", "rollbot.db")
		s, err := storage.OpenSQLite(path)
		So(err, ShouldBeNil)
		Reset(func() { _ = s.Close() })

		Convey("Load of a fresh database yields an empty snapshot", func() {
			snap, err := s.Load(ctx)
			So(err, ShouldBeNil)
			So(snap.Ownership, ShouldBeEmpty)
			So(snap.Entities, ShouldBeEmpty)
		})

		Convey("Save then Load returns the same state", func() {
			want := sampleSnapshot()
			So(s.Save(ctx, want), ShouldBeNil)
			got, err := s.Load(ctx)
			So(err, ShouldBeNil)
			assertSnapshotsEqual(got, want)
		})

		Convey("A second save replaces the first", func() {
			So(s.Save(ctx, sampleSnapshot()), ShouldBeNil)
			next := sampleSnapshot()
			delete(next.Ownership, 7)
			next.Balances["u1"] = 5
			So(s.Save(ctx, next), ShouldBeNil)

			got, err := s.Load(ctx)
			So(err, ShouldBeNil)
			So(got.Ownership, ShouldNotContainKey, int64(7))
			So(got.Balances["u1"], ShouldEqual, 5)
		})

		Convey("Data survives reopening", func() {
			So(s.Save(ctx, sampleSnapshot()), ShouldBeNil)
			So(s.Close(), ShouldBeNil)

			reopened, err := storage.OpenSQLite(path)
			So(err, ShouldBeNil)
			defer reopened.Close()
			got, err := reopened.Load(ctx)
			So(err, ShouldBeNil)
			assertSnapshotsEqual(got, sampleSnapshot())
		})
	})

	Convey("OpenSQLite rejects an empty path", t, func() {
		_, err := storage.OpenSQLite("")
		So(err, ShouldWrap, storage.ErrPersistence)
	})

	Convey("Close on a nil store is safe", t, func() {
		var s *storage.SQLiteStore
		So(s.Close(), ShouldBeNil)
	})
}

func TestOpen(t *testing.T) {
	Convey("Open picks the backend from config", t, func() {
		cfg := config.New()
		cfg.DataDir = t.TempDir()
		cfg.SQLitePath = filepath.Join(t.TempDir(), "x.db")

		s, err := storage.Open(cfg)
		So(err, ShouldBeNil)
		_, ok := s.(*storage.JSONStore)
		So(ok, ShouldBeTrue)
		So(s.Close(), ShouldBeNil)

		cfg.Store = config.StoreSQLite
		s, err = storage.Open(cfg)
		So(err, ShouldBeNil)
		_, ok = s.(*storage.SQLiteStore)
		So(ok, ShouldBeTrue)
		So(s.Close(), ShouldBeNil)

		cfg.Store = "redis"
		_, err = storage.Open(cfg)
		So(err, ShouldWrap, storage.ErrPersistence)
	})
}
