package pipeline

import (
	"strings"

	"salesbot/internal/domain"
)

// defaultUserLabel labels messages whose author is unknown.
const defaultUserLabel = "Usuario"

// buildTranscript renders a message window as one "Label: text" line per
// message, in input order, skipping the message identified by excludeID
// (the message being answered). Pure function.
func buildTranscript(messages []domain.Message, excludeID string) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		if excludeID != "" && m.ID == excludeID {
			continue
		}
		lines = append(lines, transcriptLabel(m.Author)+": "+m.Text)
	}
	return strings.Join(lines, "\n")
}

func transcriptLabel(author string) string {
	switch strings.ToLower(author) {
	case "assistant", "bot":
		return "Bot"
	case "":
		return defaultUserLabel
	default:
		return author
	}
}
