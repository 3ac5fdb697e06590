package kb

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"salesbot/internal/domain"
)

// seedFile is the on-disk shape of a knowledge seed.
type seedFile struct {
	Articles []seedArticle `yaml:"articles"`
}

type seedArticle struct {
	Name   string `yaml:"name"`
	Text   string `yaml:"text"`
	URL    string `yaml:"url,omitempty"`
	Active *bool  `yaml:"active,omitempty"` // default true
}

// LoadSeed reads a YAML seed file and upserts its articles. Articles with a
// URL and no inline text are fetched through the processor; a fetch failure
// skips that article and continues.
func LoadSeed(ctx context.Context, path string, store domain.KnowledgeStore, proc *Processor) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}

	// Re-seeding updates by name instead of duplicating.
	existing, err := store.ListArticles(ctx)
	if err != nil {
		return 0, fmt.Errorf("list articles: %w", err)
	}
	byName := make(map[string]string, len(existing))
	for _, a := range existing {
		byName[a.Name] = a.ID
	}

	loaded := 0
	for _, s := range seed.Articles {
		if s.Name == "" {
			return loaded, fmt.Errorf("seed article %d: name is required", loaded+1)
		}

		text := s.Text
		if text == "" && s.URL != "" && proc != nil {
			extracted, err := proc.Extract(ctx, s.URL)
			if err != nil {
				proc.logger.Warn("seed article fetch failed, skipping", "name", s.Name, "err", err)
				continue
			}
			text = extracted
		}
		if text == "" {
			return loaded, fmt.Errorf("seed article %q: text or url is required", s.Name)
		}

		active := true
		if s.Active != nil {
			active = *s.Active
		}

		if err := store.SaveArticle(ctx, &domain.KnowledgeArticle{
			ID:     byName[s.Name],
			Name:   s.Name,
			Text:   text,
			URL:    s.URL,
			Active: active,
		}); err != nil {
			return loaded, fmt.Errorf("save article %q: %w", s.Name, err)
		}
		loaded++
	}
	return loaded, nil
}
