package model

// Snapshot is the whole persisted state: ledger maps plus the catalog.
// Persistence always reads and writes a complete Snapshot.
type Snapshot struct {
	Ownership map[int64]string   // entity id -> owner user id
	Balances  map[string]int64   // user id -> balance
	Accounts  map[string]Account // user id -> cooldown state
	Entities  []Entity           // catalog in ingestion order
}

// NewSnapshot returns an empty snapshot with allocated maps.
func NewSnapshot() Snapshot {
	return Snapshot{
		Ownership: make(map[int64]string),
		Balances:  make(map[string]int64),
		Accounts:  make(map[string]Account),
	}
}

// Clone deep-copies s so the copy can be handed to a slow writer while the
// original keeps changing.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Ownership: make(map[int64]string, len(s.Ownership)),
		Balances:  make(map[string]int64, len(s.Balances)),
		Accounts:  make(map[string]Account, len(s.Accounts)),
		Entities:  make([]Entity, len(s.Entities)),
	}
	for k, v := range s.Ownership {
		out.Ownership[k] = v
	}
	for k, v := range s.Balances {
		out.Balances[k] = v
	}
	for k, v := range s.Accounts {
		out.Accounts[k] = v
	}
	copy(out.Entities, s.Entities)
	return out
}

// Normalize replaces nil maps with empty ones.
func (s *Snapshot) Normalize() {
	if s.Ownership == nil {
		s.Ownership = make(map[int64]string)
	}
	if s.Balances == nil {
		s.Balances = make(map[string]int64)
	}
	if s.Accounts == nil {
		s.Accounts = make(map[string]Account)
	}
}
