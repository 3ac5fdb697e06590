package pipeline

import (
	"strings"
	"time"

	"salesbot/internal/domain"
)

// selectWindow picks the slice of history relevant to this turn. When the
// last message is older than the session timeout the conversation is treated
// as freshly started: only that message survives, so downstream steps never
// operate on a totally empty context. Otherwise the most recent historySize
// messages are returned in chronological order.
func selectWindow(history []domain.Message, now time.Time, historySize int, timeout time.Duration) []domain.Message {
	if len(history) == 0 {
		return nil
	}
	last := history[len(history)-1]
	if now.Sub(last.CreatedAt) > timeout {
		return []domain.Message{last}
	}
	if len(history) > historySize {
		return history[len(history)-historySize:]
	}
	return history
}

// lastUserMessage returns the most recent message not authored by the bot,
// or nil when the channel holds only bot output.
func lastUserMessage(history []domain.Message) *domain.Message {
	for i := len(history) - 1; i >= 0; i-- {
		if !strings.EqualFold(history[i].Author, "bot") {
			return &history[i]
		}
	}
	return nil
}
