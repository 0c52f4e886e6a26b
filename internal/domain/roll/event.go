package roll

import (
	"strconv"
	"strings"
	"time"

	"github.com/okian/rollbot/internal/domain/model"
)

// State of a roll event.
type State int

const (
	Drawn State = iota
	Presented
	Claimed
	Expired
)

func (s State) String() string {
	switch s {
	case Drawn:
		return "drawn"
	case Presented:
		return "presented"
	case Claimed:
		return "claimed"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further claim can be accepted.
func (s State) Terminal() bool { return s == Claimed || s == Expired }

// Event is one roll: the drawn entity and its claim window.
type Event struct {
	ID        string
	Entity    model.Entity
	RollerID  string
	ChannelID string
	MessageID string
	Emoji     string
	Color     int
	CreatedAt time.Time
	ExpiresAt time.Time // zero until presented
	ClaimedBy string
	State     State
}

const claimPrefix = "claim_"

// CustomID is the claim affordance id for entity id.
func CustomID(entityID int64) string {
	return claimPrefix + strconv.FormatInt(entityID, 10)
}

// ParseCustomID extracts the entity id from a claim affordance id.
func ParseCustomID(customID string) (int64, error) {
	raw, ok := strings.CutPrefix(customID, claimPrefix)
	if !ok {
		return 0, ErrBadCustomID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrBadCustomID
	}
	return id, nil
}
