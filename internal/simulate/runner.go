package simulate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rollbot/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Run executes a full simulation: every user rolls, each roll message gets
// one claim press from a random user, every user mines once, and the
// outbox and leaderboard are checked afterwards.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()[:8]
	}
	log := logger.Named("simulate")
	log.Info(ctx, "starting rollbot simulation",
		logger.String("base_url", cfg.BaseURL),
		logger.String("run_id", cfg.RunID),
		logger.Int("users", cfg.Users),
		logger.Int("rolls", cfg.Rolls),
		logger.Int("workers", cfg.Workers),
	)

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := client.getJSON(ctx, "/healthz", nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	cursor, err := outboxHead(ctx, client)
	if err != nil {
		return stats, fmt.Errorf("read outbox: %w", err)
	}

	cmds := generateCommands(cfg)
	stats.CommandsSubmitted = len(cmds)
	if err := submitAll(ctx, client, cfg.Workers, "/commands", cmds, stats); err != nil {
		return stats, fmt.Errorf("submit commands: %w", err)
	}
	records, err := settle(ctx, client, cursor, cfg)
	if err != nil {
		return stats, fmt.Errorf("wait for replies: %w", err)
	}

	presses := claimTargets(records, func(int) User {
		return simUser(cfg.RunID, rand.IntN(cfg.Users)) //nolint:gosec // simulation
	})
	stats.RollMessages = len(presses)
	stats.InteractionsSubmitted = len(presses)
	if err := submitAll(ctx, client, cfg.Workers, "/interactions", presses, stats); err != nil {
		return stats, fmt.Errorf("submit claims: %w", err)
	}
	more, err := settle(ctx, client, lastSeq(records, cursor), cfg)
	if err != nil {
		return stats, fmt.Errorf("wait for claims: %w", err)
	}
	records = append(records, more...)

	var rows []UserRow
	if err := client.getJSON(ctx, fmt.Sprintf("/leaderboard/users?limit=%d", cfg.TopN), &rows); err != nil {
		return stats, fmt.Errorf("leaderboard: %w", err)
	}
	stats.RankedUsers = len(rows)
	stats.Announcements = countContaining(records, announcementMark)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if err := verify(cfg, records, rows); err != nil {
		return stats, fmt.Errorf("verification failed: %w", err)
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

// submitAll posts every item to path with at most workers in flight.
// Individual failures are counted, not returned.
func submitAll[T any](ctx context.Context, client *HTTPClient, workers int, path string, items []T, stats *Stats) error {
	var accepted, duplicate, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, item := range items {
		g.Go(func() error {
			res, err := client.submit(gctx, path, item)
			switch {
			case err != nil:
				failed.Add(1)
				logger.Named("simulate").Debug(gctx, "submission failed", logger.String("path", path), logger.Error(err))
			case res == resultDuplicate:
				duplicate.Add(1)
			default:
				accepted.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	stats.Accepted += int(accepted.Load())
	stats.Duplicate += int(duplicate.Load())
	stats.Failed += int(failed.Load())
	if err == nil {
		err = ctx.Err()
	}
	return err
}

// outboxHead returns the sequence number of the newest outbox record.
func outboxHead(ctx context.Context, client *HTTPClient) (int64, error) {
	var cursor int64
	for {
		var page outboxPage
		if err := client.getJSON(ctx, fmt.Sprintf("/outbox?after=%d&limit=%d", cursor, outboxPageLimit), &page); err != nil {
			return 0, err
		}
		if len(page.Records) == 0 {
			return cursor, nil
		}
		cursor = page.Next
	}
}

// settle collects outbox records after cursor until none arrive for
// cfg.Settle. Reaching cfg.MaxWait returns what was collected.
func settle(ctx context.Context, client *HTTPClient, cursor int64, cfg *Config) ([]Record, error) {
	var out []Record
	deadline := time.Now().Add(cfg.MaxWait)
	quietSince := time.Now()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		var page outboxPage
		if err := client.getJSON(ctx, fmt.Sprintf("/outbox?after=%d&limit=%d", cursor, outboxPageLimit), &page); err != nil {
			return out, err
		}
		if len(page.Records) > 0 {
			out = append(out, page.Records...)
			cursor = page.Next
			quietSince = time.Now()
			continue
		}
		now := time.Now()
		if now.Sub(quietSince) >= cfg.Settle {
			return out, nil
		}
		if now.After(deadline) {
			logger.Named("simulate").Warn(ctx, "outbox still busy at max wait", logger.Int("records", len(out)))
			return out, nil
		}
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-ticker.C:
		}
	}
}

func lastSeq(records []Record, fallback int64) int64 {
	if len(records) == 0 {
		return fallback
	}
	return records[len(records)-1].Seq
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.CommandsSubmitted+stats.InteractionsSubmitted) / stats.Duration.Seconds()
	}
	logger.Named("simulate").Info(ctx, "final statistics",
		logger.Int("commands", stats.CommandsSubmitted),
		logger.Int("interactions", stats.InteractionsSubmitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Int("roll_messages", stats.RollMessages),
		logger.Int("announcements", stats.Announcements),
		logger.Int("ranked_users", stats.RankedUsers),
		logger.Duration("duration", stats.Duration),
		logger.Float64("events_per_second", perSecond),
	)
}
