package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/newsrag/config"
	"github.com/mohammad-safakhou/newsrag/models"
	"github.com/mohammad-safakhou/newsrag/provider"
)

// ResponseGenerator builds a grounded prompt from retrieved articles and
// recent history, invokes the generative backend, and absorbs every
// generation failure into a templated fallback. It never returns a raw
// error to the caller: the user always gets either an answer or an
// explanation.
type ResponseGenerator struct {
	gen    provider.Generator
	cfg    config.ChatConfig
	logger *log.Logger
}

// NewResponseGenerator creates a generator over a probed (or unprobed,
// permanently falling back) generative backend.
func NewResponseGenerator(gen provider.Generator, cfg config.ChatConfig) *ResponseGenerator {
	return &ResponseGenerator{
		gen:    gen,
		cfg:    cfg,
		logger: log.New(log.Writer(), "[GEN] ", log.LstdFlags),
	}
}

// GenerateResponse answers the query grounded in the retrieved articles.
func (g *ResponseGenerator) GenerateResponse(ctx context.Context, query string, articles []models.RetrievalResult, history []models.ConversationTurn) string {
	prompt := g.buildPrompt(query, articles, history)

	gen, err := g.gen.Generate(ctx, prompt)
	if err != nil {
		g.logger.Printf("generation error: %v", err)
		switch {
		case errors.Is(err, models.ErrNoModelAvailable):
			fallbacksTotal.WithLabelValues("no_model").Inc()
			return g.fallback(query, articles, "The AI model is currently unavailable.")
		case errors.Is(err, models.ErrQuotaExhausted):
			fallbacksTotal.WithLabelValues("quota").Inc()
			return g.fallback(query, articles, "API quota exceeded. Please try again later.")
		default:
			fallbacksTotal.WithLabelValues("service_error").Inc()
			return g.fallback(query, articles, fmt.Sprintf("AI service error: %v", err))
		}
	}

	if gen.SafetyBlocked {
		g.logger.Printf("response blocked by safety filters")
		fallbacksTotal.WithLabelValues("safety").Inc()
		return g.fallback(query, articles, "The response was blocked for safety reasons.")
	}
	if gen.StopReason == "OTHER" || gen.StopReason == "RECITATION" {
		g.logger.Printf("response finished with reason: %s", gen.StopReason)
		fallbacksTotal.WithLabelValues("stop_reason").Inc()
		return g.fallback(query, articles, "The AI service could not complete a response.")
	}
	if strings.TrimSpace(gen.Text) == "" {
		g.logger.Printf("empty response received")
		fallbacksTotal.WithLabelValues("empty").Inc()
		return g.fallback(query, articles, "Received empty response from AI service.")
	}
	return gen.Text
}

func (g *ResponseGenerator) buildPrompt(query string, articles []models.RetrievalResult, history []models.ConversationTurn) string {
	var sb strings.Builder

	sb.WriteString("You are a helpful news assistant. Use the provided news articles to answer the user's question.\n\n")

	sb.WriteString("RECENT NEWS ARTICLES:\n")
	for i, article := range articles {
		excerpt := article.Payload.Text
		if len(excerpt) > g.cfg.ExcerptChars {
			excerpt = excerpt[:g.cfg.ExcerptChars] + "..."
		}
		fmt.Fprintf(&sb, "Source %d: %s\nContent: %s\n\n", i+1, article.Payload.Title, excerpt)
	}

	if recent := lastTurns(history, g.cfg.HistoryWindow); len(recent) > 0 {
		sb.WriteString("RECENT CONVERSATION:\n")
		for _, turn := range recent {
			label := "User"
			if turn.Role == models.RoleAssistant {
				label = "Assistant"
			}
			fmt.Fprintf(&sb, "%s: %s\n", label, turn.Content)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "USER QUESTION: %s\n\n", query)

	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("1. Answer based on the news articles provided above\n")
	sb.WriteString("2. If the articles don't contain relevant information, say \"I don't have specific information about this in the recent news, but generally...\" and provide helpful information\n")
	sb.WriteString("3. Be concise and factual\n")
	sb.WriteString("4. Reference specific articles when possible (e.g., \"According to Source 1...\")\n")
	fmt.Fprintf(&sb, "5. Keep your response under %d words\n\n", g.cfg.MaxAnswerWords)
	sb.WriteString("Please provide a helpful answer:")

	return sb.String()
}

// fallback produces the deterministic templated response used whenever
// generation fails or is blocked.
func (g *ResponseGenerator) fallback(query string, articles []models.RetrievalResult, note string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "I found %d relevant news articles for your question about %q:\n\n", len(articles), query)
	for i, article := range articles {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, article.Payload.Title)
	}
	sb.WriteString("\nNote: ")
	if note == "" {
		note = "I am currently experiencing issues with the AI service."
	}
	sb.WriteString(note)
	sb.WriteString("\n\nIn a fully working system, I would provide a detailed summary based on the content of these articles.")
	return sb.String()
}

func lastTurns(history []models.ConversationTurn, n int) []models.ConversationTurn {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
