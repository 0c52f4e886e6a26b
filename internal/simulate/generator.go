package simulate

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// generateCommands returns Rolls rounds of $roll from every user followed
// by one $daily each. Every command carries a fresh event id.
func generateCommands(cfg *Config) []Command {
	cmds := make([]Command, 0, cfg.Users*(cfg.Rolls+1))
	for r := 0; r <= cfg.Rolls; r++ {
		for u := 0; u < cfg.Users; u++ {
			content := "$roll"
			if r == cfg.Rolls {
				content = "$daily"
			}
			cmds = append(cmds, Command{
				EventID:   uuid.NewString(),
				ChannelID: cfg.ChannelID,
				MessageID: uuid.NewString(),
				Author:    simUser(cfg.RunID, u),
				Content:   content,
			})
		}
	}
	return cmds
}

// simUser names user i of a run. The run id keeps users of separate runs
// apart in the persisted ledger.
func simUser(runID string, i int) User {
	return User{ID: fmt.Sprintf("sim-%s-%04d", runID, i), Name: fmt.Sprintf("Sim %d", i)}
}

func isSimUser(runID, id string) bool {
	return strings.HasPrefix(id, "sim-"+runID+"-")
}

// claimTargets returns one claim press per roll message, pressed by
// pick(n) where n counts the presses built so far.
func claimTargets(records []Record, pick func(n int) User) []Interaction {
	var out []Interaction
	for _, rec := range records {
		if rec.Op != "send" || len(rec.Message.Buttons) != 1 {
			continue
		}
		b := rec.Message.Buttons[0]
		if b.Disabled || !strings.HasPrefix(b.CustomID, claimButtonStart) {
			continue
		}
		out = append(out, Interaction{
			EventID:   uuid.NewString(),
			ChannelID: rec.ChannelID,
			MessageID: rec.MessageID,
			User:      pick(len(out)),
			CustomID:  b.CustomID,
		})
	}
	return out
}
