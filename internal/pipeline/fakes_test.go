package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"salesbot/internal/domain"
)

// fakeConversations is an in-memory ConversationStore for pipeline tests.
type fakeConversations struct {
	messages []domain.Message
	appended []domain.Message
	failOn   string // "get" or "append"
}

func (f *fakeConversations) GetOrCreateChannel(ctx context.Context, externalID string) (*domain.Channel, error) {
	return &domain.Channel{ID: "ch-1", ExternalID: externalID}, nil
}

func (f *fakeConversations) GetChannel(ctx context.Context, id string) (*domain.Channel, error) {
	return &domain.Channel{ID: id}, nil
}

func (f *fakeConversations) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	return nil, nil
}

func (f *fakeConversations) GetMessages(ctx context.Context, channelID string) ([]domain.Message, error) {
	if f.failOn == "get" {
		return nil, fmt.Errorf("store down")
	}
	return f.messages, nil
}

func (f *fakeConversations) AppendMessage(ctx context.Context, channelID, text, author string) (*domain.Message, error) {
	if f.failOn == "append" {
		return nil, fmt.Errorf("store down")
	}
	m := domain.Message{
		ID:        fmt.Sprintf("m-%d", len(f.appended)+1),
		ChannelID: channelID,
		Text:      text,
		Author:    author,
		CreatedAt: time.Now(),
	}
	f.appended = append(f.appended, m)
	return &m, nil
}

type fakeCatalog struct {
	vehicles []domain.Vehicle
	calls    int
}

func (f *fakeCatalog) ListVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	f.calls++
	return f.vehicles, nil
}

func (f *fakeCatalog) GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error) {
	return nil, fmt.Errorf("not found")
}

func (f *fakeCatalog) GetVehicleByStockID(ctx context.Context, stockID string) (*domain.Vehicle, error) {
	return nil, fmt.Errorf("not found")
}

func (f *fakeCatalog) SaveVehicle(ctx context.Context, v *domain.Vehicle) error { return nil }
func (f *fakeCatalog) DeleteVehicle(ctx context.Context, id string) error       { return nil }

type fakeKnowledge struct {
	articles []domain.KnowledgeArticle
}

func (f *fakeKnowledge) ListArticles(ctx context.Context) ([]domain.KnowledgeArticle, error) {
	return f.articles, nil
}

func (f *fakeKnowledge) ListActiveArticles(ctx context.Context) ([]domain.KnowledgeArticle, error) {
	var out []domain.KnowledgeArticle
	for _, a := range f.articles {
		if a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeKnowledge) GetArticlesByIDs(ctx context.Context, ids []string) ([]domain.KnowledgeArticle, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.KnowledgeArticle
	for _, a := range f.articles {
		if a.Active && want[a.ID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeKnowledge) GetArticle(ctx context.Context, id string) (*domain.KnowledgeArticle, error) {
	return nil, fmt.Errorf("not found")
}

func (f *fakeKnowledge) SaveArticle(ctx context.Context, a *domain.KnowledgeArticle) error { return nil }
func (f *fakeKnowledge) DeleteArticle(ctx context.Context, id string) error                { return nil }

// scriptedCompleter answers each Complete call by matching the system prompt
// against registered rules, in order. Unmatched calls fail the run.
type scriptedCompleter struct {
	rules    []completerRule
	requests []domain.CompletionRequest
}

type completerRule struct {
	systemContains string
	reply          string
	err            error
}

func (s *scriptedCompleter) on(systemContains, reply string) *scriptedCompleter {
	s.rules = append(s.rules, completerRule{systemContains: systemContains, reply: reply})
	return s
}

func (s *scriptedCompleter) failOn(systemContains string, err error) *scriptedCompleter {
	s.rules = append(s.rules, completerRule{systemContains: systemContains, err: err})
	return s
}

func (s *scriptedCompleter) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	s.requests = append(s.requests, req)
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("scripted completer: empty request")
	}
	system := req.Messages[0].Content
	for _, r := range s.rules {
		if strings.Contains(system, r.systemContains) {
			if r.err != nil {
				return "", r.err
			}
			return r.reply, nil
		}
	}
	return "", fmt.Errorf("scripted completer: no rule for system prompt %q", truncate(system, 80))
}

func (s *scriptedCompleter) Healthy(ctx context.Context) error { return nil }

// lastRequestMatching returns the most recent request whose system message
// contains the marker.
func (s *scriptedCompleter) lastRequestMatching(marker string) *domain.CompletionRequest {
	for i := len(s.requests) - 1; i >= 0; i-- {
		if len(s.requests[i].Messages) > 0 && strings.Contains(s.requests[i].Messages[0].Content, marker) {
			return &s.requests[i]
		}
	}
	return nil
}
