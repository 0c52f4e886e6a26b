package simulate

import (
	"errors"
	"fmt"
	"strings"
)

const dailyMark = "mined today!"

var errInconsistent = errors.New("inconsistent state")

// verify checks the outbox and the Top Users rows against the economy's
// rules for the users of this run.
func verify(cfg *Config, records []Record, rows []UserRow) error {
	for i, row := range rows {
		if row.Rank != i+1 {
			return fmt.Errorf("%w: row %d has rank %d", errInconsistent, i, row.Rank)
		}
		if i > 0 && row.Total > rows[i-1].Total {
			return fmt.Errorf("%w: leaderboard not sorted at rank %d", errInconsistent, row.Rank)
		}
	}

	owned := 0
	for _, row := range rows {
		if !isSimUser(cfg.RunID, row.UserID) {
			continue
		}
		// one claim per claim period
		if row.Owned > 1 {
			return fmt.Errorf("%w: %s owns %d entities; did a claim reset pass during the run?",
				errInconsistent, row.UserID, row.Owned)
		}
		owned += row.Owned
	}
	announced := countContaining(records, announcementMark)
	if len(rows) < cfg.TopN && owned != announced {
		return fmt.Errorf("%w: %d claim announcements but %d owned entities", errInconsistent, announced, owned)
	}

	if mined := countContaining(records, dailyMark); mined != cfg.Users {
		return fmt.Errorf("%w: %d daily rewards for %d users", errInconsistent, mined, cfg.Users)
	}
	return nil
}

func countContaining(records []Record, mark string) int {
	n := 0
	for _, r := range records {
		if r.Op == "send" && strings.Contains(r.Message.Content, mark) {
			n++
		}
	}
	return n
}
