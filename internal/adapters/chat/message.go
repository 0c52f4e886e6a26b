// Package chat models outbound chat-platform messages and the collaborators
// that deliver them.
package chat

import "time"

// Button styles.
const (
	StylePrimary   = "primary"
	StyleSecondary = "secondary"
	StyleSuccess   = "success"
)

// Message is one outbound message. On Edit the whole message is replaced,
// except that nil Attachments keep the ones already sent.
type Message struct {
	Content     string       `json:"content,omitempty"`
	Embeds      []Embed      `json:"embeds,omitempty"`
	Buttons     []Button     `json:"buttons,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	// Ephemeral limits visibility to this user id.
	Ephemeral string `json:"ephemeral,omitempty"`
	// ReplyTo is the inbound message or interaction being answered.
	ReplyTo string `json:"reply_to,omitempty"`
}

// Embed is a rich card.
type Embed struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color,omitempty"`
	Author      string  `json:"author,omitempty"`
	Image       string  `json:"image,omitempty"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Footer      string  `json:"footer,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Button is an interactive control. Pressing it produces an interaction
// carrying CustomID.
type Button struct {
	CustomID string `json:"custom_id"`
	Label    string `json:"label,omitempty"`
	Emoji    string `json:"emoji,omitempty"`
	Style    string `json:"style,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Attachment is a file uploaded with the message. Embeds reference it as
// attachment://Name.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// AttachmentURL returns the embed reference for an attachment name.
func AttachmentURL(name string) string { return "attachment://" + name }

// Record is one delivered operation as kept by the Outbox.
type Record struct {
	Seq       int64     `json:"seq"`
	Op        string    `json:"op"`
	ChannelID string    `json:"channel_id"`
	MessageID string    `json:"message_id"`
	Message   Message   `json:"message"`
	At        time.Time `json:"at"`
}

// Operation names.
const (
	OpSend = "send"
	OpEdit = "edit"
)
