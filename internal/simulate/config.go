// Package simulate drives a running rollbot over HTTP: simulated users
// roll, race for claims and mine currency, and the resulting state is
// checked against the economy's rules.
package simulate

import (
	"time"

	"github.com/okian/rollbot/internal/adapters/chat"
	service "github.com/okian/rollbot/internal/app"
	"github.com/okian/rollbot/internal/domain/types"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL   string        // Base URL of the service
	RunID     string        // Distinguishes this run's users; generated when empty
	ChannelID string        // Channel the simulated users talk in
	Users     int           // Number of simulated users
	Rolls     int           // $roll commands per user
	TopN      int           // Users fetched from the leaderboard
	Workers   int           // Concurrent HTTP submitters
	Timeout   time.Duration // HTTP request timeout
	Settle    time.Duration // Outbox quiet period that counts as processed
	MaxWait   time.Duration // Upper bound on each settle wait
	Verbose   bool          // Log every claim outcome
}

// Wire shapes shared with the service.
type (
	Command     = service.Command
	Interaction = service.Interaction
	User        = service.User
	Record      = chat.Record
	UserRow     = types.UserRow
)

// AckResponse is the acknowledgement of an inbound event.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type outboxPage struct {
	Records []Record `json:"records"`
	Next    int64    `json:"next"`
}

// Stats holds run statistics.
type Stats struct {
	CommandsSubmitted     int
	InteractionsSubmitted int
	Accepted              int
	Duplicate             int
	Failed                int
	RollMessages          int
	Announcements         int
	RankedUsers           int
	StartTime             time.Time
	EndTime               time.Time
	Duration              time.Duration
}
