// Package metrics provides Prometheus metrics for the rollbot economy service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Economy
	rolls            prometheus.Counter
	rollRejections   *prometheus.CounterVec
	claims           prometheus.Counter
	claimRejections  *prometheus.CounterVec
	dailyClaims      prometheus.Counter
	dailyRewardTotal prometheus.Counter
	rollEventsLive   prometheus.Gauge
	rollEventsClosed *prometheus.CounterVec
	pagesOpen        prometheus.Gauge
	pageNavigations  *prometheus.CounterVec

	// State
	catalogEntities prometheus.Gauge
	ownedEntities   prometheus.Gauge
	knownUsers      prometheus.Gauge

	// Scheduler
	schedulerTicks       *prometheus.CounterVec
	schedulerUsersSwept  *prometheus.GaugeVec
	schedulerLastTickSec *prometheus.GaugeVec

	// Persistence
	persistWrites   prometheus.Counter
	persistFailures prometheus.Counter
	persistLatency  prometheus.Histogram
	persistDirty    prometheus.Gauge

	// Ingestion
	ingestPages      prometheus.Counter
	ingestEntities   prometheus.Counter
	ingestDuplicates prometheus.Counter
	ingestFailures   prometheus.Counter

	// Event loop
	loopQueueSize   prometheus.Gauge
	loopEnqueued    prometheus.Counter
	loopRejected    *prometheus.CounterVec
	loopJobLatency  *prometheus.HistogramVec
	loopJobFailures *prometheus.CounterVec
	inboundDupes    prometheus.Counter

	// Outbound chat
	messagesSent   *prometheus.CounterVec
	messageFailure *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // service registry without Go runtime collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rollbot",
		subsystem:        "economy",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.rolls = m.counter("rolls_total", "Total number of successful rolls")
	m.rollRejections = m.counterVec("roll_rejections_total", "Rolls rejected before drawing, by reason", "reason")
	m.claims = m.counter("claims_total", "Total number of accepted claims")
	m.claimRejections = m.counterVec("claim_rejections_total", "Claim attempts rejected, by reason", "reason")
	m.dailyClaims = m.counter("daily_claims_total", "Total number of daily currency claims")
	m.dailyRewardTotal = m.counter("daily_reward_currency_total", "Currency minted through daily claims")
	m.rollEventsLive = m.gauge("roll_events_live", "Roll events with an open claim window")
	m.rollEventsClosed = m.counterVec("roll_events_closed_total", "Roll events closed, by outcome", "outcome")
	m.pagesOpen = m.gauge("pagination_sessions_open", "Paginated views that still accept navigation")
	m.pageNavigations = m.counterVec("pagination_navigations_total", "Navigation clicks, by action", "action")

	m.catalogEntities = m.gauge("catalog_entities", "Entities loaded in the catalog")
	m.ownedEntities = m.gauge("owned_entities", "Entities with an owner")
	m.knownUsers = m.gauge("known_users", "Users with a cooldown account")

	m.schedulerTicks = m.counterVec("scheduler_ticks_total", "Cooldown reset ticks, by job", "job")
	m.schedulerUsersSwept = m.gaugeVec("scheduler_users_swept", "Users reset by the last tick, by job", "job")
	m.schedulerLastTickSec = m.gaugeVec("scheduler_last_tick_unix", "Unix time of the last tick, by job", "job")

	m.persistWrites = m.counter("persistence_writes_total", "Snapshot writes that succeeded")
	m.persistFailures = m.counter("persistence_failures_total", "Snapshot writes that failed")
	m.persistLatency = m.histogram("persistence_write_milliseconds", "Snapshot write latency in milliseconds")
	m.persistDirty = m.gauge("persistence_dirty", "1 while in-memory state has not been written successfully")

	m.ingestPages = m.counter("ingest_pages_total", "Catalog pages ingested")
	m.ingestEntities = m.counter("ingest_entities_total", "Entities appended by ingestion")
	m.ingestDuplicates = m.counter("ingest_duplicates_total", "Entities skipped during ingestion because their id was known")
	m.ingestFailures = m.counter("ingest_failures_total", "Catalog page fetches that failed")

	m.loopQueueSize = m.gauge("loop_queue_size", "Jobs waiting for the event loop")
	m.loopEnqueued = m.counter("loop_enqueued_total", "Jobs accepted by the event loop")
	m.loopRejected = m.counterVec("loop_rejected_total", "Jobs rejected by the event loop queue, by reason", "reason")
	m.loopJobLatency = m.histogramVec("loop_job_milliseconds", "Event loop job latency in milliseconds, by job", "job")
	m.loopJobFailures = m.counterVec("loop_job_failures_total", "Event loop jobs that returned an error or panicked", "job", "kind")
	m.inboundDupes = m.counter("inbound_duplicates_total", "Inbound events dropped as duplicates")

	m.messagesSent = m.counterVec("messages_total", "Outbound chat operations, by operation", "op")
	m.messageFailure = m.counterVec("message_failures_total", "Outbound chat operations that failed, by operation", "op")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")
}

// RecordRoll counts a successful roll.
func RecordRoll() { globalManager.rolls.Inc() }

// RecordRollRejected counts a roll refused before drawing.
func RecordRollRejected(reason string) { globalManager.rollRejections.WithLabelValues(reason).Inc() }

// RecordClaim counts an accepted claim.
func RecordClaim() { globalManager.claims.Inc() }

// RecordClaimRejected counts a rejected claim attempt.
func RecordClaimRejected(reason string) { globalManager.claimRejections.WithLabelValues(reason).Inc() }

// RecordDailyClaim counts a daily claim and the currency it minted.
func RecordDailyClaim(reward int64) {
	globalManager.dailyClaims.Inc()
	if reward > 0 {
		globalManager.dailyRewardTotal.Add(float64(reward))
	}
}

// UpdateRollEventsLive sets the number of open claim windows.
func UpdateRollEventsLive(n int) { globalManager.rollEventsLive.Set(float64(n)) }

// RecordRollEventClosed counts a closed roll event by outcome (claimed, expired).
func RecordRollEventClosed(outcome string) {
	globalManager.rollEventsClosed.WithLabelValues(outcome).Inc()
}

// UpdatePaginationSessions sets the number of navigable paginated views.
func UpdatePaginationSessions(n int) { globalManager.pagesOpen.Set(float64(n)) }

// RecordPageNavigation counts a navigation click.
func RecordPageNavigation(action string) { globalManager.pageNavigations.WithLabelValues(action).Inc() }

// UpdateCatalogEntities sets the catalog size.
func UpdateCatalogEntities(n int) { globalManager.catalogEntities.Set(float64(n)) }

// UpdateOwnedEntities sets the number of owned entities.
func UpdateOwnedEntities(n int) { globalManager.ownedEntities.Set(float64(n)) }

// UpdateKnownUsers sets the number of users with cooldown accounts.
func UpdateKnownUsers(n int) { globalManager.knownUsers.Set(float64(n)) }

// RecordSchedulerTick records a reset tick for job that touched swept users.
func RecordSchedulerTick(job string, swept int) {
	globalManager.schedulerTicks.WithLabelValues(job).Inc()
	globalManager.schedulerUsersSwept.WithLabelValues(job).Set(float64(swept))
	globalManager.schedulerLastTickSec.WithLabelValues(job).Set(float64(time.Now().Unix()))
}

// RecordPersistWrite records a successful snapshot write.
func RecordPersistWrite(latencyMs float64) {
	globalManager.persistWrites.Inc()
	globalManager.persistLatency.Observe(latencyMs)
	globalManager.persistDirty.Set(0)
}

// RecordPersistFailure records a failed snapshot write.
func RecordPersistFailure() {
	globalManager.persistFailures.Inc()
	globalManager.persistDirty.Set(1)
	globalManager.errorsByComponent.WithLabelValues("storage", "write_failed").Inc()
}

// RecordIngestPage records one ingested catalog page.
func RecordIngestPage(added, duplicates int) {
	globalManager.ingestPages.Inc()
	globalManager.ingestEntities.Add(float64(added))
	globalManager.ingestDuplicates.Add(float64(duplicates))
}

// RecordIngestFailure records a failed catalog fetch.
func RecordIngestFailure() {
	globalManager.ingestFailures.Inc()
	globalManager.errorsByComponent.WithLabelValues("catalog", "fetch_failed").Inc()
}

// UpdateLoopQueueSize sets the event loop backlog.
func UpdateLoopQueueSize(n int) { globalManager.loopQueueSize.Set(float64(n)) }

// RecordLoopEnqueue counts an accepted job.
func RecordLoopEnqueue() { globalManager.loopEnqueued.Inc() }

// RecordLoopRejected counts a job the queue refused.
func RecordLoopRejected(reason string) {
	globalManager.loopRejected.WithLabelValues(reason).Inc()
	globalManager.errorsByComponent.WithLabelValues("queue", reason).Inc()
}

// RecordLoopJob observes the latency of a finished job.
func RecordLoopJob(job string, latencyMs float64) {
	globalManager.loopJobLatency.WithLabelValues(job).Observe(latencyMs)
}

// RecordLoopJobFailure counts a job that failed; kind is "error" or "panic".
func RecordLoopJobFailure(job, kind string) {
	globalManager.loopJobFailures.WithLabelValues(job, kind).Inc()
	globalManager.errorsByComponent.WithLabelValues("worker", kind).Inc()
}

// RecordInboundDuplicate counts an inbound event dropped by idempotency.
func RecordInboundDuplicate() { globalManager.inboundDupes.Inc() }

// RecordMessage counts an outbound chat operation (send, edit).
func RecordMessage(op string) { globalManager.messagesSent.WithLabelValues(op).Inc() }

// RecordMessageFailure counts a failed outbound chat operation.
func RecordMessageFailure(op string) {
	globalManager.messageFailure.WithLabelValues(op).Inc()
	globalManager.errorsByComponent.WithLabelValues("chat", op+"_failed").Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error by component and type.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval is how often callers should refresh state gauges.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}
