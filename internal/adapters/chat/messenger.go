package chat

import "context"

// Messenger delivers messages to the chat platform.
type Messenger interface {
	// Send posts msg to channelID and returns the platform message id.
	Send(ctx context.Context, channelID string, msg Message) (string, error)
	// Edit replaces a previously sent message.
	Edit(ctx context.Context, channelID, messageID string, msg Message) error
}
