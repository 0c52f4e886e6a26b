package service

import (
	"fmt"
	"strings"
)

// User identifies a chat user.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Bot  bool   `json:"bot,omitempty"`
}

// Command is a chat message that may carry a $ command.
type Command struct {
	EventID   string `json:"event_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Author    User   `json:"author"`
	Content   string `json:"content"`
	Mentions  []User `json:"mentions,omitempty"`
}

// Validate checks the fields every command needs.
func (c Command) Validate() error {
	switch {
	case strings.TrimSpace(c.EventID) == "":
		return fmt.Errorf("%w: missing event_id", ErrValidation)
	case strings.TrimSpace(c.ChannelID) == "":
		return fmt.Errorf("%w: missing channel_id", ErrValidation)
	case strings.TrimSpace(c.Author.ID) == "":
		return fmt.Errorf("%w: missing author.id", ErrValidation)
	}
	return nil
}

// Interaction is a button press on a message the service sent.
type Interaction struct {
	EventID   string `json:"event_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	User      User   `json:"user"`
	CustomID  string `json:"custom_id"`
}

// Validate checks the fields every interaction needs.
func (i Interaction) Validate() error {
	switch {
	case strings.TrimSpace(i.EventID) == "":
		return fmt.Errorf("%w: missing event_id", ErrValidation)
	case strings.TrimSpace(i.ChannelID) == "":
		return fmt.Errorf("%w: missing channel_id", ErrValidation)
	case strings.TrimSpace(i.MessageID) == "":
		return fmt.Errorf("%w: missing message_id", ErrValidation)
	case strings.TrimSpace(i.User.ID) == "":
		return fmt.Errorf("%w: missing user.id", ErrValidation)
	case strings.TrimSpace(i.CustomID) == "":
		return fmt.Errorf("%w: missing custom_id", ErrValidation)
	}
	return nil
}

// displayName falls back to the id when no name was sent.
func (u User) displayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}
