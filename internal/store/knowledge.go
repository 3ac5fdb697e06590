package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"salesbot/internal/domain"
)

// --- domain.KnowledgeStore ---

const articleColumns = `id, name, text, url, active, created_at`

func scanArticle(row interface{ Scan(...any) error }) (*domain.KnowledgeArticle, error) {
	var a domain.KnowledgeArticle
	err := row.Scan(&a.ID, &a.Name, &a.Text, &a.URL, &a.Active, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *SQLiteStore) ListArticles(ctx context.Context) ([]domain.KnowledgeArticle, error) {
	return s.queryArticles(ctx,
		`SELECT `+articleColumns+` FROM knowledge_articles ORDER BY created_at DESC`)
}

// ListActiveArticles returns the articles visible to the pipeline, oldest
// first so the id enumeration in prompts is stable across runs.
func (s *SQLiteStore) ListActiveArticles(ctx context.Context) ([]domain.KnowledgeArticle, error) {
	return s.queryArticles(ctx,
		`SELECT `+articleColumns+` FROM knowledge_articles WHERE active = 1 ORDER BY created_at`)
}

// GetArticlesByIDs returns the active articles whose id is in the given set.
func (s *SQLiteStore) GetArticlesByIDs(ctx context.Context, ids []string) ([]domain.KnowledgeArticle, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.queryArticles(ctx,
		`SELECT `+articleColumns+` FROM knowledge_articles
		 WHERE active = 1 AND id IN (`+placeholders+`) ORDER BY created_at`, args...)
}

func (s *SQLiteStore) queryArticles(ctx context.Context, query string, args ...any) ([]domain.KnowledgeArticle, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []domain.KnowledgeArticle
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

func (s *SQLiteStore) GetArticle(ctx context.Context, id string) (*domain.KnowledgeArticle, error) {
	a, err := scanArticle(s.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM knowledge_articles WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// SaveArticle inserts or updates an article. An empty ID means create.
func (s *SQLiteStore) SaveArticle(ctx context.Context, a *domain.KnowledgeArticle) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO knowledge_articles (`+articleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, text=excluded.text, url=excluded.url, active=excluded.active`,
		a.ID, a.Name, a.Text, a.URL, a.Active, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save article %s: %w", a.Name, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteArticle(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_articles WHERE id = ?`, id)
	return err
}
