package domain

import "time"

// InboundMessage is one incoming chat event from a transport.
type InboundMessage struct {
	Transport  string // "whatsapp" | "telegram" | "cli"
	SenderID   string // external channel identity (number, chat id)
	SenderName string // display name; may be empty
	Text       string
	Timestamp  time.Time
}

// OutboundMessage is one reply to be delivered by a transport.
type OutboundMessage struct {
	Transport string
	SenderID  string
	Text      string
}
