// Package model contains domain models passed between layers.
package model

import "strings"

// Gender is the presentation class of an entity. Anything that is not
// Male is shown obfuscated while a roll is live.
type Gender string

const (
	GenderMale  Gender = "Male"
	GenderOther Gender = "Other"
)

// ParseGender maps a catalog gender label to a Gender.
func ParseGender(s string) Gender {
	if strings.EqualFold(strings.TrimSpace(s), string(GenderMale)) {
		return GenderMale
	}
	return GenderOther
}

// Entity is a collectible record. Value is computed once at ingestion and
// never changes afterwards.
type Entity struct {
	ID          int64  // externally assigned, unique
	Name        string // display name
	ImageRef    string // image URL
	Gender      Gender
	SourceTitle string // title of the work the entity appears in
	Value       int64  // scored value, >= 0
}

// Blurred reports whether the entity is rendered through the blur transform.
func (e Entity) Blurred() bool {
	return e.Gender != GenderMale
}
