package domain

import "context"

// Transport is the interface for user-facing messaging I/O (WhatsApp,
// Telegram). Start blocks until ctx is cancelled.
type Transport interface {
	Name() string
	Start(ctx context.Context, bus MessageBus) error
	Stop() error
	Send(ctx context.Context, senderID string, text string) error
}
