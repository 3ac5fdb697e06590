// Package store implements the persistence layer on SQLite: channels and
// messages for conversations, the vehicle catalog, and knowledge articles.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"salesbot/internal/domain"
)

// SQLiteStore implements domain.ConversationStore, domain.CatalogStore and
// domain.KnowledgeStore on a single SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS channels (
		id          TEXT PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		seq         INTEGER PRIMARY KEY AUTOINCREMENT,
		id          TEXT NOT NULL UNIQUE,
		channel_id  TEXT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
		text        TEXT NOT NULL,
		author      TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id, created_at, seq);

	CREATE TABLE IF NOT EXISTS vehicles (
		id        TEXT PRIMARY KEY,
		stock_id  TEXT NOT NULL UNIQUE,
		km        INTEGER NOT NULL DEFAULT 0,
		price     REAL NOT NULL DEFAULT 0,
		make      TEXT NOT NULL DEFAULT '',
		model     TEXT NOT NULL DEFAULT '',
		year      INTEGER NOT NULL DEFAULT 0,
		version   TEXT NOT NULL DEFAULT '',
		bluetooth INTEGER NOT NULL DEFAULT 0,
		car_play  INTEGER NOT NULL DEFAULT 0,
		largo     REAL NOT NULL DEFAULT 0,
		ancho     REAL NOT NULL DEFAULT 0,
		altura    REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS knowledge_articles (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL DEFAULT '',
		text        TEXT NOT NULL DEFAULT '',
		url         TEXT NOT NULL DEFAULT '',
		active      INTEGER NOT NULL DEFAULT 1,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_articles_active ON knowledge_articles(active, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// --- domain.ConversationStore ---

func (s *SQLiteStore) GetOrCreateChannel(ctx context.Context, externalID string) (*domain.Channel, error) {
	ch, err := s.getChannelBy(ctx, "external_id", externalID)
	if err != nil {
		return nil, err
	}
	if ch != nil {
		return ch, nil
	}

	ch = &domain.Channel{
		ID:         uuid.NewString(),
		ExternalID: externalID,
		CreatedAt:  time.Now().UTC(),
	}
	// INSERT OR IGNORE covers the race where two inbound events create the
	// same channel; the follow-up read returns the winner.
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO channels (id, external_id, created_at) VALUES (?, ?, ?)`,
		ch.ID, ch.ExternalID, ch.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}

	created, err := s.getChannelBy(ctx, "external_id", externalID)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("channel %s vanished after create", externalID)
	}
	if created.ID == ch.ID {
		s.logger.Info("channel created", "external_id", externalID, "id", ch.ID)
	}
	return created, nil
}

func (s *SQLiteStore) GetChannel(ctx context.Context, id string) (*domain.Channel, error) {
	return s.getChannelBy(ctx, "id", id)
}

func (s *SQLiteStore) getChannelBy(ctx context.Context, column, value string) (*domain.Channel, error) {
	var ch domain.Channel
	err := s.db.QueryRowContext(ctx,
		`SELECT id, external_id, created_at FROM channels WHERE `+column+` = ?`, value,
	).Scan(&ch.ID, &ch.ExternalID, &ch.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *SQLiteStore) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, external_id, created_at FROM channels ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []domain.Channel
	for rows.Next() {
		var ch domain.Channel
		if err := rows.Scan(&ch.ID, &ch.ExternalID, &ch.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// GetMessages returns the channel's full history in chronological order,
// ties broken by insertion order.
func (s *SQLiteStore) GetMessages(ctx context.Context, channelID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, channel_id, text, COALESCE(author, ''), created_at
		 FROM messages WHERE channel_id = ?
		 ORDER BY created_at, seq`, channelID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.Text, &m.Author, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, channelID, text, author string) (*domain.Message, error) {
	m := &domain.Message{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		Text:      text,
		Author:    author,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, channel_id, text, author, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ChannelID, m.Text, m.Author, m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return m, nil
}
