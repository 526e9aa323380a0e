package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mohammad-safakhou/newsrag/models"
)

const probePrompt = `Hello, respond with "OK"`

// Client talks to the Gemini generateContent REST API. The candidate list is
// ordered; Probe adopts the first model that answers the probe prompt and the
// adopted model is used for every subsequent call until the next Probe.
type Client struct {
	baseURL    string
	apiKey     string
	candidates []string
	httpClient *http.Client
	logger     *log.Logger

	mu     sync.RWMutex
	active string
}

// NewClient creates a new Gemini client. The returned client is unprobed.
func NewClient(baseURL, apiKey string, candidates []string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		candidates: candidates,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.New(log.Writer(), "[GEMINI] ", log.LstdFlags),
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Probe tries each candidate model in order with a trivial prompt and adopts
// the first one whose reply contains the expected acknowledgment token.
func (c *Client) Probe(ctx context.Context) error {
	for _, model := range c.candidates {
		c.logger.Printf("testing model: %s", model)
		gen, err := c.call(ctx, model, probePrompt)
		if err != nil {
			c.logger.Printf("%s failed: %v", model, err)
			continue
		}
		if strings.Contains(gen.Text, "OK") {
			c.mu.Lock()
			c.active = model
			c.mu.Unlock()
			c.logger.Printf("initialized with model: %s", model)
			return nil
		}
		c.logger.Printf("%s gave unexpected probe reply", model)
	}
	c.mu.Lock()
	c.active = ""
	c.mu.Unlock()
	return models.ErrNoModelAvailable
}

// ActiveModel reports the adopted model, or "" before a successful probe.
func (c *Client) ActiveModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Generate runs one completion against the adopted model.
func (c *Client) Generate(ctx context.Context, prompt string) (models.Generation, error) {
	model := c.ActiveModel()
	if model == "" {
		return models.Generation{}, models.ErrNoModelAvailable
	}
	return c.call(ctx, model, prompt)
}

func (c *Client) call(ctx context.Context, model, prompt string) (models.Generation, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return models.Generation{}, fmt.Errorf("%w: marshal request: %v", models.ErrGeneration, err)
	}

	url := fmt.Sprintf("%s/v1beta/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return models.Generation{}, fmt.Errorf("%w: create request: %v", models.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Generation{}, fmt.Errorf("%w: %v", models.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return models.Generation{}, fmt.Errorf("%w: %s", models.ErrQuotaExhausted, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return models.Generation{}, fmt.Errorf("%w: gemini API returned %s: %s", models.ErrGeneration, resp.Status, string(b))
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return models.Generation{}, fmt.Errorf("%w: parse response: %v", models.ErrGeneration, err)
	}

	gen := models.Generation{}
	if parsed.PromptFeedback.BlockReason != "" {
		gen.SafetyBlocked = true
		gen.StopReason = "SAFETY"
		return gen, nil
	}
	if len(parsed.Candidates) == 0 {
		return models.Generation{}, fmt.Errorf("%w: no candidates in response", models.ErrGeneration)
	}

	cand := parsed.Candidates[0]
	gen.StopReason = cand.FinishReason
	if cand.FinishReason == "SAFETY" {
		gen.SafetyBlocked = true
		return gen, nil
	}
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	gen.Text = sb.String()
	return gen, nil
}
