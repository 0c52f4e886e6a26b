package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/okian/rollbot/internal/domain/catalog"
	"github.com/okian/rollbot/internal/domain/cooldown"
	"github.com/okian/rollbot/internal/domain/leaderboard"
	"github.com/okian/rollbot/internal/domain/ledger"
	"github.com/okian/rollbot/internal/domain/roll"
	"github.com/okian/rollbot/pkg/logger"
	"github.com/okian/rollbot/pkg/metrics"
)

// Command tokens.
const (
	cmdRoll       = "$roll"
	cmdDiamonds   = "$diamonds"
	cmdCharacters = "$characters"
	cmdTop        = "$top"
	cmdDaily      = "$daily"
	cmdGive       = "$give"
	cmdTopMiners  = "$topminers"
	cmdShow       = "$show"
)

// parseCommand splits content into a lowercased command token and the
// remaining argument text.
func parseCommand(content string) (name, args string) {
	content = strings.TrimSpace(content)
	name, args, _ = strings.Cut(content, " ")
	return strings.ToLower(name), strings.TrimSpace(args)
}

// accepts reports whether events from channelID are processed.
func (s *Service) accepts(channelID string) bool {
	return s.cfg.ChannelID == "" || channelID == s.cfg.ChannelID
}

// HandleCommand runs one chat message. Messages from bots, from other
// channels, and without a known command are ignored.
func (s *Service) HandleCommand(ctx context.Context, cmd Command) error {
	if cmd.Author.Bot || !s.accepts(cmd.ChannelID) {
		return nil
	}
	name, args := parseCommand(cmd.Content)
	ctx = logger.WithFields(ctx,
		logger.String("command", name),
		logger.String("user_id", cmd.Author.ID),
		logger.String("channel_id", cmd.ChannelID),
	)

	var err error
	switch name {
	case cmdRoll:
		err = s.roll(ctx, cmd)
	case cmdDiamonds:
		err = s.diamonds(ctx, cmd)
	case cmdCharacters:
		err = s.characters(ctx, cmd)
	case cmdTop:
		err = s.topEntities(ctx, cmd)
	case cmdDaily:
		err = s.daily(ctx, cmd)
	case cmdGive:
		err = s.reply(ctx, cmd, msgInProgress)
	case cmdTopMiners:
		err = s.topUsers(ctx, cmd)
	case cmdShow:
		err = s.show(ctx, cmd, args)
	default:
		return nil
	}
	if err != nil {
		metrics.RecordErrorByComponent("dispatcher", strings.TrimPrefix(name, "$"))
		s.logger.Error(ctx, "command failed", logger.Error(err))
	}
	return err
}

func (s *Service) reply(ctx context.Context, cmd Command, content string) error {
	_, err := s.messenger.Send(ctx, cmd.ChannelID, text(content, cmd.MessageID))
	return err
}

func (s *Service) roll(ctx context.Context, cmd Command) error {
	ev, left, err := s.rolls.Roll(ctx, cmd.Author.ID, cmd.ChannelID)
	switch {
	case errors.Is(err, roll.ErrRollCooldown):
		now := s.now()
		wait := s.scheduler.NextRollReset(now).Sub(now)
		return s.reply(ctx, cmd, fmt.Sprintf(msgRollWait, cooldown.FormatRemaining(wait)))
	case errors.Is(err, roll.ErrNoEntitiesAvailable):
		return s.reply(ctx, cmd, msgNoneLeft)
	case err != nil:
		return err
	}

	msg := s.render.rollMessage(ev, s.blur(ctx, ev.Entity.ImageRef, ev.Entity.Blurred()), true)
	msgID, err := s.messenger.Send(ctx, cmd.ChannelID, msg)
	if err != nil {
		s.rolls.Discard(ev.ID)
		return fmt.Errorf("send roll: %w", err)
	}
	if _, err := s.rolls.Present(ev.ID, msgID); err != nil {
		return fmt.Errorf("present roll: %w", err)
	}
	s.logger.Info(ctx, "entity rolled",
		logger.String("event_id", ev.ID),
		logger.Int64("entity_id", ev.Entity.ID),
		logger.Int("rolls_left", left),
	)
	return nil
}

// blur returns the blurred image bytes when needed. A failed transform
// degrades to a card without an image, so the entity is never shown
// unblurred.
func (s *Service) blur(ctx context.Context, imageRef string, needed bool) []byte {
	if !needed || imageRef == "" {
		return nil
	}
	b, err := s.blurrer.Blur(ctx, imageRef)
	if err != nil {
		metrics.RecordErrorByComponent("imaging", "blur_failed")
		s.logger.Warn(ctx, "blur failed, sending without image", logger.String("image", imageRef), logger.Error(err))
		return nil
	}
	return b
}

func (s *Service) diamonds(ctx context.Context, cmd Command) error {
	bal := s.ledger.Balance(cmd.Author.ID)
	return s.reply(ctx, cmd, fmt.Sprintf(msgBalance, bal, s.cfg.CurrencyEmoji))
}

func (s *Service) daily(ctx context.Context, cmd Command) error {
	res, err := s.ledger.Daily(ctx, cmd.Author.ID)
	switch {
	case errors.Is(err, ledger.ErrDailyCooldown):
		wait := res.Next.Sub(s.now())
		return s.reply(ctx, cmd, fmt.Sprintf(msgDailyWait, cooldown.FormatRemaining(wait), s.cfg.CurrencyEmoji))
	case err != nil && !errors.Is(err, ledger.ErrPersistFailure):
		return err
	}
	metrics.RecordDailyClaim(res.Reward)
	return s.reply(ctx, cmd, fmt.Sprintf(msgDailyOK, res.Reward, s.cfg.CurrencyEmoji, res.Balance))
}

func (s *Service) characters(ctx context.Context, cmd Command) error {
	target := cmd.Author
	if len(cmd.Mentions) > 0 {
		target = cmd.Mentions[0]
	}
	owned := s.ledger.Owned(target.ID)
	if len(owned) == 0 {
		return s.reply(ctx, cmd, msgNoCharacters)
	}
	msg := s.render.owned(target.displayName(), owned)
	msg.ReplyTo = cmd.MessageID
	_, err := s.messenger.Send(ctx, cmd.ChannelID, msg)
	return err
}

func (s *Service) show(ctx context.Context, cmd Command, query string) error {
	e, err := s.catalog.FindByName(query)
	if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, catalog.ErrEmptyQuery) {
		return s.reply(ctx, cmd, msgNotFound)
	}
	if err != nil {
		return err
	}
	msg := s.render.entityCard(e, s.randomColor(), s.blur(ctx, e.ImageRef, e.Blurred()))
	if rank, err := s.catalog.Rank(ctx, e.ID); err == nil {
		msg.Embeds[0].Footer = fmt.Sprintf(msgShowRank, rank)
	}
	msg.ReplyTo = cmd.MessageID
	_, err = s.messenger.Send(ctx, cmd.ChannelID, msg)
	return err
}

func (s *Service) randomColor() int {
	if s.rng != nil {
		return s.rng.IntN(0x1000000)
	}
	return rand.IntN(0x1000000) //nolint:gosec // embed colour
}

func (s *Service) topEntities(ctx context.Context, cmd Command) error {
	rows, err := leaderboard.TopEntities(ctx, s.catalog, s.cfg.TopEntitiesLimit)
	if err != nil {
		return err
	}
	return s.sendSession(ctx, cmd, leaderboard.Session{
		Kind:     leaderboard.KindEntities,
		PageSize: s.cfg.EntitiesPageSize,
		Entities: rows,
	})
}

func (s *Service) topUsers(ctx context.Context, cmd Command) error {
	return s.sendSession(ctx, cmd, leaderboard.Session{
		Kind:     leaderboard.KindUsers,
		PageSize: s.cfg.UsersPageSize,
		Users:    leaderboard.TopUsers(s.ledger.Claims(), s.catalog.Get),
	})
}

// sendSession posts page 0 of a ranked view. Views with more than one page
// stay navigable by the requester until the idle timeout.
func (s *Service) sendSession(ctx context.Context, cmd Command, sess leaderboard.Session) error {
	sess.OwnerID = cmd.Author.ID
	sess.OwnerName = cmd.Author.displayName()
	sess.ChannelID = cmd.ChannelID
	sess = s.pages.Open(sess)

	msg := s.render.page(sess, true)
	msg.ReplyTo = cmd.MessageID
	msgID, err := s.messenger.Send(ctx, cmd.ChannelID, msg)
	if err != nil || sess.Pages() <= 1 {
		s.pages.Drop(sess.ID)
		return err
	}
	_, err = s.pages.Bind(sess.ID, msgID)
	return err
}

// HandleInteraction runs one button press.
func (s *Service) HandleInteraction(ctx context.Context, it Interaction) error {
	if !s.accepts(it.ChannelID) {
		return nil
	}
	ctx = logger.WithFields(ctx,
		logger.String("custom_id", it.CustomID),
		logger.String("user_id", it.User.ID),
		logger.String("message_id", it.MessageID),
	)
	if _, err := roll.ParseCustomID(it.CustomID); err == nil {
		return s.claim(ctx, it)
	}
	action, err := leaderboard.ParseAction(it.CustomID)
	if err != nil {
		s.logger.Debug(ctx, "unknown interaction ignored")
		return nil
	}
	return s.navigate(ctx, it, action)
}

func (s *Service) interactionReply(ctx context.Context, it Interaction, content string, ephemeral bool) error {
	msg := text(content, it.EventID)
	if ephemeral {
		msg.Ephemeral = it.User.ID
	}
	_, err := s.messenger.Send(ctx, it.ChannelID, msg)
	return err
}

func (s *Service) claim(ctx context.Context, it Interaction) error {
	res, err := s.rolls.Claim(ctx, it.MessageID, it.CustomID, it.User.ID)
	switch {
	case errors.Is(err, roll.ErrWindowClosed), errors.Is(err, roll.ErrBadCustomID):
		s.logger.Debug(ctx, "late or stray claim ignored", logger.Error(err))
		return nil
	case err != nil:
		return err
	}

	switch res.Outcome {
	case ledger.Accepted:
		_, err := s.messenger.Send(ctx, it.ChannelID, s.render.claimAnnouncement(it.User, res.Event.Entity))
		return err
	case ledger.AlreadyOwned:
		return s.interactionReply(ctx, it, msgAlreadyClaimed, false)
	case ledger.ClaimOnCooldown:
		now := s.now()
		wait := s.scheduler.NextClaimReset(now).Sub(now)
		return s.interactionReply(ctx, it, fmt.Sprintf(msgClaimWait, it.User.displayName(), cooldown.FormatRemaining(wait)), false)
	case ledger.UnknownEntity:
		return s.interactionReply(ctx, it, msgNotFound, false)
	}
	return nil
}

func (s *Service) navigate(ctx context.Context, it Interaction, action leaderboard.Action) error {
	sess, err := s.pages.Navigate(ctx, it.MessageID, it.User.ID, action)
	switch {
	case errors.Is(err, leaderboard.ErrNotOwner):
		return s.interactionReply(ctx, it, fmt.Sprintf(msgOnlyInitiator, sess.OwnerName), true)
	case errors.Is(err, leaderboard.ErrSessionClosed):
		return nil
	case err != nil:
		return err
	}
	return s.messenger.Edit(ctx, it.ChannelID, it.MessageID, s.render.page(sess, true))
}
