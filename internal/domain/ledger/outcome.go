package ledger

// Outcome is the result of a claim attempt.
type Outcome int

const (
	Accepted Outcome = iota
	AlreadyOwned
	ClaimOnCooldown
	UnknownEntity
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case AlreadyOwned:
		return "already_owned"
	case ClaimOnCooldown:
		return "claim_cooldown"
	case UnknownEntity:
		return "unknown_entity"
	default:
		return "unknown"
	}
}

// Err returns the sentinel for a rejected outcome and nil for Accepted.
func (o Outcome) Err() error {
	switch o {
	case AlreadyOwned:
		return ErrAlreadyOwned
	case ClaimOnCooldown:
		return ErrClaimCooldown
	case UnknownEntity:
		return ErrUnknownEntity
	default:
		return nil
	}
}
