package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/newsrag/models"
)

// HistoryStore is the slice of the session store the orchestrator needs.
type HistoryStore interface {
	StoreHistory(ctx context.Context, sessionID string, turns []models.ConversationTurn) error
	GetHistory(ctx context.Context, sessionID string) ([]models.ConversationTurn, error)
	ClearHistory(ctx context.Context, sessionID string) error
}

// Searcher is the slice of the vector index the orchestrator needs.
type Searcher interface {
	SearchSimilar(ctx context.Context, query string, limit int) ([]models.RetrievalResult, error)
}

// Emitter delivers outbound events for one exchange. Implementations are
// fire-and-forget; a failed delivery must not abort the exchange.
type Emitter interface {
	Typing(typing bool)
	Message(turn models.ConversationTurn)
}

// Orchestrator drives one request/response exchange per inbound message:
// load history, retrieve context, generate, persist, deliver. Exchanges on
// different sessions are independent; two concurrent exchanges on the same
// session are last-writer-wins, clients are expected to serialize per
// session.
type Orchestrator struct {
	history   HistoryStore
	index     Searcher
	generator *ResponseGenerator
	topK      int
	logger    *log.Logger
}

// NewOrchestrator wires the conversation pipeline.
func NewOrchestrator(history HistoryStore, index Searcher, generator *ResponseGenerator, topK int) *Orchestrator {
	if topK <= 0 {
		topK = 3
	}
	return &Orchestrator{
		history:   history,
		index:     index,
		generator: generator,
		topK:      topK,
		logger:    log.New(log.Writer(), "[CHAT] ", log.LstdFlags),
	}
}

// HandleMessage runs the full exchange for one inbound message. The typing
// signal is always terminated, success or failure. A returned error means no
// response was generated; the transport reports it as an error event.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, message string, emit Emitter) error {
	if strings.TrimSpace(message) == "" {
		exchangeErrorsTotal.WithLabelValues("validate").Inc()
		return models.ErrEmptyMessage
	}
	messagesTotal.Inc()

	history, err := o.history.GetHistory(ctx, sessionID)
	if err != nil {
		exchangeErrorsTotal.WithLabelValues("load_history").Inc()
		return fmt.Errorf("load history: %w", err)
	}
	history = append(history, models.NewTurn(models.RoleUser, message))

	emit.Typing(true)
	defer emit.Typing(false)

	articles, err := o.index.SearchSimilar(ctx, message, o.topK)
	if err != nil {
		exchangeErrorsTotal.WithLabelValues("retrieve").Inc()
		return fmt.Errorf("retrieve articles: %w", err)
	}
	retrievedArticlesTotal.Add(float64(len(articles)))

	answer := o.generator.GenerateResponse(ctx, message, articles, history)
	assistantTurn := models.NewTurn(models.RoleAssistant, answer)
	history = append(history, assistantTurn)

	if err := o.history.StoreHistory(ctx, sessionID, history); err != nil {
		exchangeErrorsTotal.WithLabelValues("store_history").Inc()
		return fmt.Errorf("store history: %w", err)
	}

	emit.Message(assistantTurn)
	o.logger.Printf("response sent to %s (%d articles)", sessionID, len(articles))
	return nil
}

// History returns the persisted turn sequence for a session. Absent or
// expired sessions read back empty.
func (o *Orchestrator) History(ctx context.Context, sessionID string) ([]models.ConversationTurn, error) {
	return o.history.GetHistory(ctx, sessionID)
}

// Clear deletes the session's history. Idempotent.
func (o *Orchestrator) Clear(ctx context.Context, sessionID string) error {
	return o.history.ClearHistory(ctx, sessionID)
}
