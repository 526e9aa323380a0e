package repository

import (
	"context"

	"github.com/mohammad-safakhou/newsrag/config"
	"github.com/mohammad-safakhou/newsrag/models"
	"github.com/mohammad-safakhou/newsrag/provider"
	"github.com/mohammad-safakhou/newsrag/repository/qdrant_repository"
	"github.com/mohammad-safakhou/newsrag/repository/redis_repository"
)

// HistoryRepository defines the interface for per-session conversation
// history. Histories expire on a TTL refreshed by every store; an absent or
// expired history reads back as an empty sequence, not an error.
type HistoryRepository interface {
	StoreHistory(ctx context.Context, sessionID string, turns []models.ConversationTurn) error
	GetHistory(ctx context.Context, sessionID string) ([]models.ConversationTurn, error)
	ClearHistory(ctx context.Context, sessionID string) error
}

// ArticleIndex defines the interface for the news article vector store.
type ArticleIndex interface {
	Initialize(ctx context.Context) error
	AddDocument(ctx context.Context, id, text string, meta models.ArticleMeta) error
	SearchSimilar(ctx context.Context, query string, limit int) ([]models.RetrievalResult, error)
	CollectionInfo(ctx context.Context) (models.CollectionInfo, error)
}

// NewHistoryRepository connects to redis and returns the session history repo.
func NewHistoryRepository(ctx context.Context, cfg config.RedisConfig) (HistoryRepository, error) {
	client, err := redis_repository.Conn(ctx, cfg.RedisAddr(), cfg.Password, cfg.DB, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return redis_repository.NewHistoryRepository(client, cfg.HistoryTTL), nil
}

// NewArticleIndex builds the qdrant-backed article index.
func NewArticleIndex(cfg config.QdrantConfig, embedder provider.Embedder) ArticleIndex {
	return qdrant_repository.NewIndex(qdrant_repository.Config{
		URL:            cfg.URL,
		APIKey:         cfg.APIKey,
		Collection:     cfg.Collection,
		Dimension:      cfg.Dimension,
		ScoreThreshold: cfg.ScoreThreshold,
		Timeout:        cfg.Timeout,
	}, embedder)
}
