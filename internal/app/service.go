// Package service wires the economy together: it loads state, owns the
// event loop, dispatches chat commands and button interactions, and
// serves the read models used by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/rollbot/internal/adapters/anilist"
	"github.com/okian/rollbot/internal/adapters/chat"
	"github.com/okian/rollbot/internal/adapters/imaging"
	eventqueue "github.com/okian/rollbot/internal/adapters/mq/queue"
	eventloop "github.com/okian/rollbot/internal/adapters/mq/worker"
	"github.com/okian/rollbot/internal/adapters/storage"
	"github.com/okian/rollbot/internal/config"
	"github.com/okian/rollbot/internal/domain/catalog"
	"github.com/okian/rollbot/internal/domain/cooldown"
	"github.com/okian/rollbot/internal/domain/dedupe"
	"github.com/okian/rollbot/internal/domain/leaderboard"
	"github.com/okian/rollbot/internal/domain/ledger"
	"github.com/okian/rollbot/internal/domain/roll"
	"github.com/okian/rollbot/internal/domain/scoring"
	"github.com/okian/rollbot/internal/domain/types"
	"github.com/okian/rollbot/pkg/logger"
	"github.com/okian/rollbot/pkg/metrics"
)

// Job names on the event loop.
const (
	jobCommand     = "command"
	jobInteraction = "interaction"
	jobSweep       = "sweep"
	jobFlush       = "flush"
	jobIngestFlush = "ingest_flush"
)

// Rand is the randomness shared by draws, rewards and scoring.
type Rand interface {
	IntN(n int) int
}

// Service implements the API dependencies for the economy.
type Service struct {
	mu sync.RWMutex

	cfg       *config.Config
	store     storage.Store
	messenger chat.Messenger
	outbox    *chat.Outbox
	fetcher   catalog.Fetcher
	blurrer   Blurrer
	now       func() time.Time
	rng       Rand
	logger    logger.Logger

	catalog   *catalog.Catalog
	scorer    *scoring.Scorer
	ledger    *ledger.Ledger
	rolls     *roll.Machine
	pages     *leaderboard.Manager
	scheduler *cooldown.Scheduler
	loop      *eventloop.Loop
	deduper   dedupe.Deduper
	render    renderer

	started      bool
	cancel       context.CancelFunc
	ingestCancel context.CancelFunc
	ingestDone   chan struct{}
}

// New constructs a Service from cfg. Collaborators not supplied through
// options are built from cfg in Start.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg:    cfg,
		now:    time.Now,
		render: renderer{currency: cfg.CurrencyEmoji},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the persisted snapshot, then starts the event loop and the
// reset scheduler.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting rollbot service...")

	if err := s.buildCollaborators(); err != nil {
		return err
	}
	s.buildDomain()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	added, dupes, err := s.catalog.Append(ctx, snap.Entities...)
	if err != nil {
		return fmt.Errorf("restore catalog: %w", err)
	}
	if dupes > 0 {
		s.logger.Warn(ctx, "duplicate entities dropped on load", logger.Int("duplicates", dupes))
	}
	s.ledger.Restore(snap)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.loop = eventloop.NewLoop(eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.cfg.QueueSize)))
	s.loop.Start(runCtx)

	s.scheduler, err = cooldown.New(s.ledger, s.cfg.Location(), s.cfg.RollResetCron, s.cfg.ClaimResetCron,
		cooldown.WithSubmitter(s.loop),
	)
	if err != nil {
		cancel()
		return err
	}
	s.scheduler.Every(jobSweep, s.cfg.SweepInterval(), s.Sweep)
	s.scheduler.Every(jobFlush, s.cfg.FlushInterval(), s.Flush)
	s.scheduler.Start()

	if s.cfg.IngestOnStart {
		s.startIngest(runCtx, s.cfg.CatalogStartPage)
	}

	s.started = true
	s.logger.Info(ctx, "rollbot service started",
		logger.Int("entities", added),
		logger.Int("users", len(snap.Accounts)),
		logger.Int("owned", len(snap.Ownership)),
		logger.String("store", s.cfg.Store),
		logger.String("messenger", s.cfg.Messenger),
	)
	return nil
}

func (s *Service) buildCollaborators() error {
	if s.store == nil {
		st, err := storage.Open(s.cfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = st
	}
	if s.messenger == nil {
		switch s.cfg.Messenger {
		case config.MessengerWebhook:
			s.messenger = chat.NewWebhook(s.cfg.WebhookURL, chat.WithTimeout(s.cfg.WebhookTimeout()))
		default:
			s.messenger = chat.NewOutbox()
		}
	}
	if o, ok := s.messenger.(*chat.Outbox); ok {
		s.outbox = o
	}
	if s.fetcher == nil {
		s.fetcher = anilist.New(s.cfg.CatalogURL, anilist.WithTimeout(s.cfg.CatalogTimeout()))
	}
	if s.blurrer == nil {
		s.blurrer = imaging.New(imaging.WithSigma(s.cfg.BlurSigma), imaging.WithTimeout(s.cfg.ImageTimeout()))
	}
	return nil
}

func (s *Service) buildDomain() {
	s.catalog = catalog.New()
	s.scorer = scoring.NewScorer(
		scoring.WithMaxPopularity(s.cfg.MaxPopularity),
		scoring.WithRand(s.rng),
	)
	s.ledger = ledger.New(s.catalog, s.store,
		ledger.WithRollsPerReset(s.cfg.RollsPerReset),
		ledger.WithDaily(s.cfg.DailyCooldown(), s.cfg.DailyMaxReward),
		ledger.WithClock(s.now),
		ledger.WithRand(s.rng),
	)
	s.rolls = roll.New(s.ledger,
		roll.WithWindow(s.cfg.ClaimWindow()),
		roll.WithClock(s.now),
		roll.WithRand(s.rng),
	)
	s.pages = leaderboard.NewManager(
		leaderboard.WithIdle(s.cfg.PaginationIdle()),
		leaderboard.WithClock(s.now),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
}

// Stop stops the scheduler, drains the event loop, flushes a dirty
// ledger and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping rollbot service...")

	var errs []error
	if err := s.scheduler.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.ingestCancel != nil {
		s.ingestCancel()
		select {
		case <-s.ingestDone:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("ingest stop: %w", ctx.Err()))
		}
	}
	if err := s.loop.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("event loop: %w", err))
	}
	s.cancel()
	if err := s.ledger.Flush(ctx, false); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "rollbot service stopped")
	return errors.Join(errs...)
}

// SubmitCommand dedupes cmd by event id and queues it on the event loop.
func (s *Service) SubmitCommand(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	return s.submit(ctx, jobCommand, cmd.EventID, func(jobCtx context.Context) error {
		return s.HandleCommand(jobCtx, cmd)
	})
}

// SubmitInteraction dedupes it by event id and queues it on the event loop.
func (s *Service) SubmitInteraction(ctx context.Context, it Interaction) error {
	if err := it.Validate(); err != nil {
		return err
	}
	return s.submit(ctx, jobInteraction, it.EventID, func(jobCtx context.Context) error {
		return s.HandleInteraction(jobCtx, it)
	})
}

func (s *Service) submit(ctx context.Context, name, eventID string, run func(context.Context) error) error {
	s.mu.RLock()
	loop, started := s.loop, s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	if s.deduper.SeenAndRecord(ctx, eventID) {
		metrics.RecordInboundDuplicate()
		s.logger.Debug(ctx, "duplicate inbound event skipped", logger.String("event_id", eventID))
		return ErrDuplicate
	}
	if !loop.Submit(name, run) {
		// let the sender retry the same id
		s.deduper.Unrecord(ctx, eventID)
		return ErrBackpressure
	}
	return nil
}

// Sweep closes roll events and pagination sessions whose time is up and
// strips their buttons.
func (s *Service) Sweep(ctx context.Context) error {
	now := s.now()
	for _, ev := range s.rolls.ExpireDue(now) {
		if ev.MessageID == "" {
			continue
		}
		if err := s.messenger.Edit(ctx, ev.ChannelID, ev.MessageID, s.render.rollMessage(ev, nil, false)); err != nil {
			s.logger.Warn(ctx, "could not close roll message",
				logger.String("event_id", ev.ID), logger.String("message_id", ev.MessageID), logger.Error(err))
		}
	}
	for _, sess := range s.pages.ExpireDue(now) {
		if err := s.messenger.Edit(ctx, sess.ChannelID, sess.MessageID, s.render.page(sess, false)); err != nil {
			s.logger.Warn(ctx, "could not close pagination message",
				logger.String("session_id", sess.ID), logger.String("message_id", sess.MessageID), logger.Error(err))
		}
	}
	metrics.UpdateCatalogEntities(s.catalog.Len())
	return nil
}

// Flush retries a failed snapshot write.
func (s *Service) Flush(ctx context.Context) error {
	return s.ledger.Flush(ctx, false)
}

// Ingest runs catalog ingestion from startPage, saving after every page.
// Fetching runs on the caller's goroutine; each save runs on the event loop.
func (s *Service) Ingest(ctx context.Context, startPage int) (catalog.IngestResult, error) {
	loop := s.loop
	if loop == nil {
		return catalog.IngestResult{NextPage: startPage}, ErrNotStarted
	}
	ing := catalog.NewIngester(s.fetcher, s.scorer, s.catalog,
		catalog.WithPageSize(s.cfg.CatalogPageSize),
		catalog.WithFlush(func(ctx context.Context) error {
			return loop.Do(ctx, jobIngestFlush, func(jobCtx context.Context) error {
				return s.ledger.Flush(jobCtx, true)
			})
		}),
	)
	res, err := ing.Run(ctx, startPage)
	metrics.UpdateCatalogEntities(s.catalog.Len())
	return res, err
}

func (s *Service) startIngest(ctx context.Context, startPage int) {
	ctx, cancel := context.WithCancel(ctx)
	s.ingestCancel = cancel
	s.ingestDone = make(chan struct{})
	go func() {
		defer close(s.ingestDone)
		res, err := s.Ingest(ctx, startPage)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error(ctx, "startup ingestion stopped",
				logger.Int("next_page", res.NextPage), logger.Error(err))
		}
	}()
}

// TopEntities returns up to limit rows of the Top Entities view.
func (s *Service) TopEntities(ctx context.Context, limit int) ([]types.EntityRow, error) {
	if limit > s.cfg.TopEntitiesLimit {
		limit = s.cfg.TopEntitiesLimit
	}
	return leaderboard.TopEntities(ctx, s.catalog, limit)
}

// TopUsers returns up to limit rows of the Top Users view.
func (s *Service) TopUsers(_ context.Context, limit int) ([]types.UserRow, error) {
	rows := leaderboard.TopUsers(s.ledger.Claims(), s.catalog.Get)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// Outbox returns the in-memory messenger, or nil when messages go to a
// webhook.
func (s *Service) Outbox() *chat.Outbox {
	return s.outbox
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":   s.started,
		"store":     s.cfg.Store,
		"messenger": s.cfg.Messenger,
	}
	if !s.started {
		return stats
	}
	ctx := context.Background()
	ls := s.ledger.Stats()
	now := s.now()
	stats["catalog_entities"] = s.catalog.Len()
	stats["users"] = ls.Users
	stats["owned_entities"] = ls.Owned
	stats["dirty"] = ls.Dirty
	stats["live_rolls"] = s.rolls.Live()
	stats["pagination_sessions"] = s.pages.Len()
	stats["queue_length"] = s.loop.Len(ctx)
	stats["dedupe_size"] = s.deduper.Size()
	stats["next_roll_reset"] = s.scheduler.NextRollReset(now).Format(time.RFC3339)
	stats["next_claim_reset"] = s.scheduler.NextClaimReset(now).Format(time.RFC3339)
	metrics.UpdateCatalogEntities(s.catalog.Len())
	return stats
}
