package service

import (
	"fmt"
	"strings"

	"github.com/okian/rollbot/internal/adapters/chat"
	"github.com/okian/rollbot/internal/adapters/imaging"
	"github.com/okian/rollbot/internal/domain/leaderboard"
	"github.com/okian/rollbot/internal/domain/model"
	"github.com/okian/rollbot/internal/domain/roll"
)

const (
	topColor       = 0xFF69B4
	topTitle       = "🏆  Top 1000"
	topMinersTitle = "🏆 Top %s miners"
)

// Reply texts.
const (
	msgNoneLeft       = "No more characters available to roll!"
	msgAlreadyClaimed = "This character has already been claimed!"
	msgNotFound       = "Character not found!"
	msgNoCharacters   = "You have not claimed any characters yet."
	msgInProgress     = "In Progress"
	msgRollWait       = "Please wait %s before rolling again."
	msgClaimWait      = "Please **%s** wait %s before claiming another character"
	msgDailyWait      = "Please wait %s before mining %s again."
	msgDailyOK        = "**+%d** %s mined today! see you tomorrow! (**%d** total)"
	msgBalance        = "You have **%d**%s"
	msgClaimAnnounce  = "💖  **%s** claimed **%s** from %s  💖"
	msgOnlyInitiator  = "Only **%s** can use these buttons!"
	msgOwnedHeader    = "%s's subordinates"
	msgOwnedTotal     = "Total Value : **%d**%s"
	msgOwnedLine      = "%s - **%d** %s"
	msgTopRow         = "**#%d** - **%s** - %s **%d**%s"
	msgTopMinersRow   = "**#%d** - **<@%s>** - **%d** coins"
	msgPageFooter     = "Page %d of %d"
	msgShowRank       = "Rank #%d"
)

// renderer builds outbound messages. It holds only presentation settings.
type renderer struct {
	currency string
}

func text(content, replyTo string) chat.Message {
	return chat.Message{Content: content, ReplyTo: replyTo}
}

// entityCard renders an entity the way a roll or $show presents it. When
// blurred is non-nil the image is replaced by the blurred attachment.
func (r renderer) entityCard(e model.Entity, color int, blurred []byte) chat.Message {
	embed := chat.Embed{
		Title:       e.Name,
		Description: fmt.Sprintf("%s\n **%d**%s", e.SourceTitle, e.Value, r.currency),
		Color:       color,
	}
	msg := chat.Message{}
	switch {
	case !e.Blurred():
		embed.Image = e.ImageRef
	case blurred != nil:
		embed.Image = chat.AttachmentURL(imaging.AttachmentName)
		msg.Attachments = []chat.Attachment{{
			Name:        imaging.AttachmentName,
			ContentType: "image/jpeg",
			Data:        blurred,
		}}
	}
	msg.Embeds = []chat.Embed{embed}
	return msg
}

// rollMessage is the card plus the claim button. Closed events keep the
// button disabled and point at the attachment uploaded with the roll.
func (r renderer) rollMessage(ev roll.Event, blurred []byte, open bool) chat.Message {
	msg := r.entityCard(ev.Entity, ev.Color, blurred)
	msg.Buttons = []chat.Button{{
		CustomID: roll.CustomID(ev.Entity.ID),
		Emoji:    ev.Emoji,
		Style:    chat.StyleSecondary,
		Disabled: !open,
	}}
	if !open {
		msg.Attachments = nil
		if ev.Entity.Blurred() {
			msg.Embeds[0].Image = chat.AttachmentURL(imaging.AttachmentName)
		}
	}
	return msg
}

func (r renderer) claimAnnouncement(user User, e model.Entity) chat.Message {
	return chat.Message{Content: fmt.Sprintf(msgClaimAnnounce, user.displayName(), e.Name, e.SourceTitle)}
}

func (r renderer) owned(name string, entities []model.Entity) chat.Message {
	var total int64
	lines := make([]string, 0, len(entities))
	for _, e := range entities {
		total += e.Value
		lines = append(lines, fmt.Sprintf(msgOwnedLine, e.Name, e.Value, r.currency))
	}
	return chat.Message{Embeds: []chat.Embed{{
		Author: fmt.Sprintf(msgOwnedHeader, name),
		Fields: []chat.Field{{
			Name:  fmt.Sprintf(msgOwnedTotal, total, r.currency),
			Value: strings.Join(lines, "\n"),
		}},
	}}}
}

// page renders the current page of s. Navigation buttons are included
// only when withControls is set and there is more than one page.
func (r renderer) page(s leaderboard.Session, withControls bool) chat.Message {
	embed := chat.Embed{
		Color:  topColor,
		Footer: fmt.Sprintf(msgPageFooter, s.Index+1, s.Pages()),
	}
	var rows []string
	switch s.Kind {
	case leaderboard.KindUsers:
		embed.Title = fmt.Sprintf(topMinersTitle, r.currency)
		for _, u := range s.UserPage() {
			rows = append(rows, fmt.Sprintf(msgTopMinersRow, u.Rank, u.UserID, u.Total))
		}
	default:
		embed.Title = topTitle
		items := s.EntityPage()
		if len(items) > 0 {
			embed.Thumbnail = items[0].ImageRef
		}
		for _, e := range items {
			rows = append(rows, fmt.Sprintf(msgTopRow, e.Rank, e.Name, e.SourceTitle, e.Value, r.currency))
		}
	}
	embed.Description = strings.Join(rows, "\n")

	msg := chat.Message{Embeds: []chat.Embed{embed}}
	if withControls && s.Pages() > 1 {
		msg.Buttons = navigation(s.Controls())
	}
	return msg
}

func navigation(c leaderboard.Controls) []chat.Button {
	return []chat.Button{
		{CustomID: string(leaderboard.First), Emoji: "⏮️", Style: chat.StylePrimary, Disabled: c.FirstDisabled},
		{CustomID: string(leaderboard.Previous), Emoji: "⬅️", Style: chat.StylePrimary, Disabled: c.PreviousDisabled},
		{CustomID: string(leaderboard.Count), Label: c.Label, Style: chat.StyleSecondary, Disabled: true},
		{CustomID: string(leaderboard.Next), Emoji: "➡️", Style: chat.StylePrimary, Disabled: c.NextDisabled},
		{CustomID: string(leaderboard.Last), Emoji: "⏭️", Style: chat.StylePrimary, Disabled: c.LastDisabled},
	}
}
