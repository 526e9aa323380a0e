package models

import (
	"errors"
	"time"
)

// ErrEmptyMessage is returned when an inbound chat message is empty or whitespace only.
var ErrEmptyMessage = errors.New("message cannot be empty")

// ErrBackendUnavailable is returned when the vector store cannot be reached.
var ErrBackendUnavailable = errors.New("vector store unavailable")

// ErrEmbedding is returned when the embedding backend fails to produce a vector.
var ErrEmbedding = errors.New("embedding failed")

// ErrStoreWrite is returned when an upsert into the vector store fails.
var ErrStoreWrite = errors.New("vector store write failed")

// ErrSessionStore is returned when session history cannot be loaded or saved.
var ErrSessionStore = errors.New("session store unavailable")

// ErrNoModelAvailable is returned when no generative model passed the startup probe.
var ErrNoModelAvailable = errors.New("no working generative model found")

// ErrQuotaExhausted is returned when the generative backend reports quota or rate-limit exhaustion.
var ErrQuotaExhausted = errors.New("generative backend quota exhausted")

// ErrGeneration is returned for any other generative backend failure.
var ErrGeneration = errors.New("generation failed")

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is a single message in a session, append-only.
type ConversationTurn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// NewTurn stamps a turn with the current time in ISO-8601.
func NewTurn(role, content string) ConversationTurn {
	return ConversationTurn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ArticleMeta is the payload stored alongside each document vector.
type ArticleMeta struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Source     string `json:"source"`
	Published  string `json:"published"`
	IngestedAt string `json:"ingestedAt"`
}

// ArticlePayload is what comes back from the vector store per point.
type ArticlePayload struct {
	Text string `json:"text"`
	ArticleMeta
}

// RetrievalResult is one scored article from a similarity search.
// Results are ordered by descending score and every score clears the
// configured threshold.
type RetrievalResult struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload ArticlePayload `json:"payload"`
}

// Generation is the outcome of one generative backend call.
type Generation struct {
	Text          string
	StopReason    string
	SafetyBlocked bool
}

// CollectionInfo reports vector store counts for observability.
type CollectionInfo struct {
	Status      string `json:"status"`
	PointsCount int64  `json:"points_count"`
}
