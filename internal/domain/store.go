package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNoUserMessage is returned when a pipeline run is started on a channel
// whose history contains no message attributable to a user.
var ErrNoUserMessage = errors.New("channel has no user message to answer")

// Channel is one conversation thread, keyed by the sender's external
// identity (a WhatsApp number, a Telegram chat id). Immutable once created.
type Channel struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Message is a single utterance in a channel. Author is "bot" for pipeline
// replies, the sender's display name for users, or empty when unknown.
// Messages are append-only; the pipeline never mutates or deletes them.
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	Text      string    `json:"text"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Vehicle is one catalog row. Read-only from the pipeline's perspective;
// mutated only through the import/CRUD surface.
type Vehicle struct {
	ID        string  `json:"id"`
	StockID   string  `json:"stock_id"`
	KM        int     `json:"km"`
	Price     float64 `json:"price"`
	Make      string  `json:"make"`
	Model     string  `json:"model"`
	Year      int     `json:"year"`
	Version   string  `json:"version,omitempty"`
	Bluetooth bool    `json:"bluetooth"`
	CarPlay   bool    `json:"car_play"`
	Largo     float64 `json:"largo"`
	Ancho     float64 `json:"ancho"`
	Altura    float64 `json:"altura"`
}

// KnowledgeArticle is a policy/FAQ document. Only active articles are
// visible to the pipeline. URL, when set, is the source page the text was
// extracted from.
type KnowledgeArticle struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	URL       string    `json:"url,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationStore is the ordered message persistence consumed by the
// pipeline. GetMessages returns chronological order (creation time, insertion
// order for ties).
type ConversationStore interface {
	GetOrCreateChannel(ctx context.Context, externalID string) (*Channel, error)
	GetChannel(ctx context.Context, id string) (*Channel, error)
	ListChannels(ctx context.Context) ([]Channel, error)
	GetMessages(ctx context.Context, channelID string) ([]Message, error)
	AppendMessage(ctx context.Context, channelID, text, author string) (*Message, error)
}

// CatalogStore provides snapshot reads of the vehicle catalog.
type CatalogStore interface {
	ListVehicles(ctx context.Context) ([]Vehicle, error)
	GetVehicle(ctx context.Context, id string) (*Vehicle, error)
	GetVehicleByStockID(ctx context.Context, stockID string) (*Vehicle, error)
	SaveVehicle(ctx context.Context, v *Vehicle) error
	DeleteVehicle(ctx context.Context, id string) error
}

// KnowledgeStore provides snapshot reads of knowledge articles.
// GetArticlesByIDs returns active articles only.
type KnowledgeStore interface {
	ListArticles(ctx context.Context) ([]KnowledgeArticle, error)
	ListActiveArticles(ctx context.Context) ([]KnowledgeArticle, error)
	GetArticlesByIDs(ctx context.Context, ids []string) ([]KnowledgeArticle, error)
	GetArticle(ctx context.Context, id string) (*KnowledgeArticle, error)
	SaveArticle(ctx context.Context, a *KnowledgeArticle) error
	DeleteArticle(ctx context.Context, id string) error
}
