// Package leaderboard computes the ranked views and drives their
// paginated sessions.
//
// A session captures its rows when opened and is owned by the user who
// asked for it. Each accepted navigation pushes the idle deadline out;
// once it passes, ExpireDue closes the session and the caller strips the
// navigation row while leaving the last page visible.
package leaderboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rollbot/internal/domain/types"
	"github.com/okian/rollbot/pkg/logger"
	"github.com/okian/rollbot/pkg/metrics"
)

const defaultIdle = 60 * time.Second

// Kind names the ranked view a session pages through.
type Kind string

const (
	KindEntities Kind = "entities"
	KindUsers    Kind = "users"
)

// Session is one paginated view.
type Session struct {
	ID           string
	Kind         Kind
	OwnerID      string
	OwnerName    string
	ChannelID    string
	MessageID    string
	Index        int
	PageSize     int
	Entities     []types.EntityRow
	Users        []types.UserRow
	IdleDeadline time.Time
	Closed       bool
}

// Total returns the number of rows.
func (s *Session) Total() int {
	if s.Kind == KindUsers {
		return len(s.Users)
	}
	return len(s.Entities)
}

// Pages returns the number of pages.
func (s *Session) Pages() int { return PageCount(s.Total(), s.PageSize) }

// Controls returns the navigation row for the current page.
func (s *Session) Controls() Controls { return ControlsFor(s.Index, s.Pages()) }

// EntityPage returns the entity rows of the current page.
func (s *Session) EntityPage() []types.EntityRow {
	start, end := Bounds(s.Index, len(s.Entities), s.PageSize)
	return s.Entities[start:end]
}

// UserPage returns the user rows of the current page.
func (s *Session) UserPage() []types.UserRow {
	start, end := Bounds(s.Index, len(s.Users), s.PageSize)
	return s.Users[start:end]
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithIdle sets the idle timeout.
func WithIdle(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.idle = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager tracks open sessions keyed by message id.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	byMessage map[string]string
	idle      time.Duration
	now       func() time.Time
	logger    logger.Logger
}

// NewManager creates a session manager with configuration options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions:  make(map[string]*Session),
		byMessage: make(map[string]string),
		idle:      defaultIdle,
		now:       time.Now,
		logger:    logger.Get().Named("pagination"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open starts a session at page 0. It is not navigable until Bind.
func (m *Manager) Open(s Session) Session {
	s.ID = uuid.NewString()
	s.Index = 0
	s.Closed = false
	if s.PageSize <= 0 {
		s.PageSize = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = &s
	metrics.UpdatePaginationSessions(len(m.sessions))
	return s
}

// Bind attaches the sent message and starts the idle timer.
func (m *Manager) Bind(sessionID, messageID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, ErrSessionClosed
	}
	s.MessageID = messageID
	s.IdleDeadline = m.now().Add(m.idle)
	m.byMessage[messageID] = sessionID
	return *s, nil
}

// Drop forgets a session, for views that need no navigation.
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		delete(m.byMessage, s.MessageID)
		delete(m.sessions, sessionID)
		metrics.UpdatePaginationSessions(len(m.sessions))
	}
}

// Navigate applies action for user on the session of messageID. Users
// other than the owner get ErrNotOwner and change nothing.
func (m *Manager) Navigate(ctx context.Context, messageID, user string, action Action) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byMessage[messageID]
	if !ok {
		return Session{}, ErrSessionClosed
	}
	s := m.sessions[id]
	if !m.now().Before(s.IdleDeadline) {
		return *s, ErrSessionClosed
	}
	if s.OwnerID != user {
		metrics.RecordPageNavigation("rejected")
		return *s, ErrNotOwner
	}
	s.Index = Apply(action, s.Index, s.Pages())
	s.IdleDeadline = m.now().Add(m.idle)
	metrics.RecordPageNavigation(string(action))
	m.logger.Debug(ctx, "page navigated",
		logger.String("session_id", s.ID),
		logger.String("action", string(action)),
		logger.Int("index", s.Index),
	)
	return *s, nil
}

// ExpireDue closes sessions idle past their deadline and returns them.
func (m *Manager) ExpireDue(now time.Time) []Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []Session
	for id, s := range m.sessions {
		if s.MessageID == "" || now.Before(s.IdleDeadline) {
			continue
		}
		s.Closed = true
		due = append(due, *s)
		delete(m.byMessage, s.MessageID)
		delete(m.sessions, id)
	}
	metrics.UpdatePaginationSessions(len(m.sessions))
	return due
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
