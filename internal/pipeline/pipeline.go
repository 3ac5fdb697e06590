// Package pipeline turns one channel's accumulated history into one bot
// reply. A run reads the conversation, normalizes the newest user message,
// plans which context to retrieve (catalog, knowledge articles), assembles
// the generation prompt and persists exactly one reply. Any failure aborts
// the run with nothing persisted.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"salesbot/internal/config"
	"salesbot/internal/domain"
)

type Pipeline struct {
	conversations domain.ConversationStore
	catalog       domain.CatalogStore
	knowledge     domain.KnowledgeStore
	completer     domain.Completer
	cfg           config.PipelineConfig
	logger        *slog.Logger
	now           func() time.Time
}

type Deps struct {
	Conversations domain.ConversationStore
	Catalog       domain.CatalogStore
	Knowledge     domain.KnowledgeStore
	Completer     domain.Completer
	Config        config.PipelineConfig
	Logger        *slog.Logger
	Now           func() time.Time // test hook, defaults to time.Now
}

func New(d Deps) *Pipeline {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Pipeline{
		conversations: d.Conversations,
		catalog:       d.Catalog,
		knowledge:     d.Knowledge,
		completer:     d.Completer,
		cfg:           d.Config,
		logger:        d.Logger,
		now:           d.Now,
	}
}

// Process runs the full pipeline for one channel and returns the persisted
// bot reply. The store is only written on success; every earlier step is
// read-only, so a failed run leaves the channel exactly as it was.
func (p *Pipeline) Process(ctx context.Context, channelID string) (*domain.Message, error) {
	start := p.now()
	log := p.logger.With("channel", channelID)

	history, err := p.conversations.GetMessages(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	userMsg := lastUserMessage(history)
	if userMsg == nil {
		return nil, domain.ErrNoUserMessage
	}

	window := selectWindow(history, start, p.cfg.HistorySize, p.cfg.SessionTimeout())
	transcript := buildTranscript(window, userMsg.ID)

	normalized, err := p.normalize(ctx, userMsg.Text)
	if err != nil {
		return nil, err
	}
	log.Debug("message normalized", "raw_len", len(userMsg.Text), "normalized", normalized)

	catalogCSV, err := p.catalogSection(ctx, log, transcript, normalized)
	if err != nil {
		return nil, err
	}

	knowledgeText, err := p.knowledgeSection(ctx, log, transcript, normalized)
	if err != nil {
		return nil, err
	}

	reply, err := p.completer.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.PromptMessage{
			{Role: "system", Content: buildPrompt(transcript, catalogCSV, knowledgeText)},
			{Role: "user", Content: normalized},
		},
		Model:       p.cfg.GenerationModel,
		Temperature: p.cfg.GenerationTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}
	if reply == "" {
		return nil, fmt.Errorf("generate reply: %w", domain.ErrEmptyCompletion)
	}

	saved, err := p.conversations.AppendMessage(ctx, channelID, reply, "bot")
	if err != nil {
		return nil, fmt.Errorf("persist reply: %w", err)
	}

	log.Info("pipeline run finished",
		"duration_ms", time.Since(start).Milliseconds(),
		"used_catalog", catalogCSV != "",
		"used_knowledge", knowledgeText != "",
		"reply_len", len(reply),
	)
	return saved, nil
}

// catalogSection decides whether the turn needs inventory data and, when it
// does, returns the model-filtered CSV. An empty inventory short-circuits to
// no section.
func (p *Pipeline) catalogSection(ctx context.Context, log *slog.Logger, transcript, normalized string) (string, error) {
	needed, err := p.needsCatalogInfo(ctx, transcript, normalized)
	if err != nil {
		return "", err
	}
	if !needed {
		return "", nil
	}

	vehicles, err := p.catalog.ListVehicles(ctx)
	if err != nil {
		return "", fmt.Errorf("load catalog: %w", err)
	}
	if len(vehicles) == 0 {
		log.Debug("catalog requested but inventory is empty")
		return "", nil
	}

	filtered, err := p.filterCatalog(ctx, normalized, vehicles)
	if err != nil {
		return "", err
	}
	log.Debug("catalog filtered", "inventory_size", len(vehicles), "filtered_len", len(filtered))
	return filtered, nil
}

// knowledgeSection selects and loads the relevant knowledge articles.
func (p *Pipeline) knowledgeSection(ctx context.Context, log *slog.Logger, transcript, normalized string) (string, error) {
	active, err := p.knowledge.ListActiveArticles(ctx)
	if err != nil {
		return "", fmt.Errorf("list articles: %w", err)
	}

	ids, err := p.relevantArticleIDs(ctx, transcript, normalized, active)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", nil
	}

	articles, err := p.knowledge.GetArticlesByIDs(ctx, ids)
	if err != nil {
		return "", fmt.Errorf("load articles: %w", err)
	}
	log.Debug("knowledge selected", "requested", len(ids), "loaded", len(articles))
	return formatArticles(articles), nil
}
