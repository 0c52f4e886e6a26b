package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/rollbot/internal/domain/model"
)

// Document names. The JSON store uses them as file names.
const (
	UsersDocument      = "users.json"
	CharactersDocument = "characters.json"
)

// usersDoc is the on-disk shape of ownership, balances and cooldowns.
type usersDoc struct {
	ClaimedCharacters map[string]string      `json:"claimedCharacters"`
	Balances          map[string]int64       `json:"balances"`
	Cooldowns         map[string]cooldownDoc `json:"cooldowns"`
}

type cooldownDoc struct {
	RollsLeft        int        `json:"rollsLeft"`
	Claimed          bool       `json:"claimed"`
	LastDailyClaimed *time.Time `json:"lastDailyClaimed,omitempty"`
}

type charactersDoc struct {
	Characters []characterDoc `json:"characters"`
}

type characterDoc struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Image  string `json:"image"`
	Gender string `json:"gender"`
	Anime  string `json:"anime"`
	Value  int64  `json:"value"`
}

// encode renders snap as the two documents.
func encode(snap model.Snapshot) (users, characters []byte, err error) {
	ud := usersDoc{
		ClaimedCharacters: make(map[string]string, len(snap.Ownership)),
		Balances:          snap.Balances,
		Cooldowns:         make(map[string]cooldownDoc, len(snap.Accounts)),
	}
	if ud.Balances == nil {
		ud.Balances = map[string]int64{}
	}
	for id, owner := range snap.Ownership {
		ud.ClaimedCharacters[strconv.FormatInt(id, 10)] = owner
	}
	for user, acc := range snap.Accounts {
		cd := cooldownDoc{RollsLeft: acc.RollsRemaining, Claimed: acc.ClaimUsed}
		if !acc.LastDailyClaimedAt.IsZero() {
			ts := acc.LastDailyClaimedAt
			cd.LastDailyClaimed = &ts
		}
		ud.Cooldowns[user] = cd
	}

	cd := charactersDoc{Characters: make([]characterDoc, len(snap.Entities))}
	for i, e := range snap.Entities {
		cd.Characters[i] = characterDoc{
			ID:     e.ID,
			Name:   e.Name,
			Image:  e.ImageRef,
			Gender: string(e.Gender),
			Anime:  e.SourceTitle,
			Value:  e.Value,
		}
	}

	if users, err = json.MarshalIndent(ud, "", "  "); err != nil {
		return nil, nil, fmt.Errorf("encode %s: %w", UsersDocument, err)
	}
	if characters, err = json.MarshalIndent(cd, "", "  "); err != nil {
		return nil, nil, fmt.Errorf("encode %s: %w", CharactersDocument, err)
	}
	return users, characters, nil
}

// decode builds a snapshot from the two documents. A nil document is
// treated as empty.
func decode(users, characters []byte) (model.Snapshot, error) {
	snap := model.NewSnapshot()

	if len(users) > 0 {
		var ud usersDoc
		if err := json.Unmarshal(users, &ud); err != nil {
			return snap, fmt.Errorf("decode %s: %w", UsersDocument, err)
		}
		for rawID, owner := range ud.ClaimedCharacters {
			id, err := strconv.ParseInt(rawID, 10, 64)
			if err != nil {
				return snap, fmt.Errorf("decode %s: entity id %q: %w", UsersDocument, rawID, err)
			}
			snap.Ownership[id] = owner
		}
		for user, bal := range ud.Balances {
			snap.Balances[user] = bal
		}
		for user, cd := range ud.Cooldowns {
			acc := model.Account{RollsRemaining: cd.RollsLeft, ClaimUsed: cd.Claimed}
			if cd.LastDailyClaimed != nil {
				acc.LastDailyClaimedAt = *cd.LastDailyClaimed
			}
			snap.Accounts[user] = acc
		}
	}

	if len(characters) > 0 {
		var cd charactersDoc
		if err := json.Unmarshal(characters, &cd); err != nil {
			return snap, fmt.Errorf("decode %s: %w", CharactersDocument, err)
		}
		snap.Entities = make([]model.Entity, len(cd.Characters))
		for i, c := range cd.Characters {
			snap.Entities[i] = model.Entity{
				ID:          c.ID,
				Name:        c.Name,
				ImageRef:    c.Image,
				Gender:      model.ParseGender(c.Gender),
				SourceTitle: c.Anime,
				Value:       c.Value,
			}
		}
	}
	return snap, nil
}
