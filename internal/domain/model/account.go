package model

import "time"

// DefaultRolls is the roll allowance restored on every roll reset.
const DefaultRolls = 8

// Account holds a user's cooldown state. Balances live next to it in the
// snapshot and change independently.
type Account struct {
	RollsRemaining int
	ClaimUsed      bool
	// LastDailyClaimedAt is zero until the first daily claim.
	LastDailyClaimedAt time.Time
}

// NewAccount returns the lazily created default account.
func NewAccount(rolls int) Account {
	return Account{RollsRemaining: rolls}
}
