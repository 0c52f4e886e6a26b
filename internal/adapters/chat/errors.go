package chat

import "errors"

var (
	ErrUnknownMessage = errors.New("unknown message")
	ErrDelivery       = errors.New("message delivery failed")
	ErrEmptyChannel   = errors.New("channel id is required")
)
