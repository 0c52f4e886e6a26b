package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rollbot/pkg/metrics"
)

const defaultOutboxCapacity = 1000

// Outbox is an in-memory Messenger. Every operation is appended to a
// bounded log that a gateway polls, and the latest version of each
// message is kept for lookups.
type Outbox struct {
	mu       sync.RWMutex
	capacity int
	now      func() time.Time
	seq      int64
	records  []Record
	latest   map[string]Record
}

// NewOutbox creates an empty outbox.
func NewOutbox(opts ...OutboxOption) *Outbox {
	o := &Outbox{
		capacity: defaultOutboxCapacity,
		now:      time.Now,
		latest:   make(map[string]Record),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Outbox) Send(ctx context.Context, channelID string, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if channelID == "" {
		metrics.RecordMessageFailure(OpSend)
		return "", ErrEmptyChannel
	}
	id := uuid.NewString()

	o.mu.Lock()
	o.appendLocked(OpSend, channelID, id, msg)
	o.mu.Unlock()

	metrics.RecordMessage(OpSend)
	return id, nil
}

func (o *Outbox) Edit(ctx context.Context, channelID, messageID string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	prev, ok := o.latest[messageID]
	if !ok || prev.ChannelID != channelID {
		metrics.RecordMessageFailure(OpEdit)
		return ErrUnknownMessage
	}
	if msg.Attachments == nil {
		msg.Attachments = prev.Message.Attachments
	}
	o.appendLocked(OpEdit, channelID, messageID, msg)
	metrics.RecordMessage(OpEdit)
	return nil
}

func (o *Outbox) appendLocked(op, channelID, messageID string, msg Message) {
	o.seq++
	rec := Record{Seq: o.seq, Op: op, ChannelID: channelID, MessageID: messageID, Message: msg, At: o.now()}
	o.records = append(o.records, rec)
	if over := len(o.records) - o.capacity; over > 0 {
		for _, old := range o.records[:over] {
			if cur, ok := o.latest[old.MessageID]; ok && cur.Seq == old.Seq {
				delete(o.latest, old.MessageID)
			}
		}
		o.records = append([]Record(nil), o.records[over:]...)
	}
	o.latest[messageID] = rec
}

// Since returns up to limit records with Seq greater than after, oldest
// first. limit <= 0 returns all of them.
func (o *Outbox) Since(after int64, limit int) []Record {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]Record, 0)
	for _, r := range o.records {
		if r.Seq <= after {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Latest returns the current version of a message.
func (o *Outbox) Latest(messageID string) (Record, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r, ok := o.latest[messageID]
	return r, ok
}

// Len returns the number of retained records.
func (o *Outbox) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.records)
}
