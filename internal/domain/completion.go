package domain

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when the completion service answers with
// an empty body where the pipeline requires content.
var ErrEmptyCompletion = errors.New("completion service returned empty text")

// PromptMessage is one entry in a completion request: role is
// "system" | "user" | "assistant".
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a single stateless text-generation request. Every
// pipeline call is an independent, timeout-bound synchronous request; there
// is no cross-call state or caching.
type CompletionRequest struct {
	Messages    []PromptMessage
	Model       string
	Temperature float64
}

// Completer is the text-completion capability all classification and
// generation steps delegate to.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Healthy(ctx context.Context) error
}
