package qdrant_repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/newsrag/models"
	"github.com/mohammad-safakhou/newsrag/provider"
)

// Config carries qdrant connection settings.
type Config struct {
	URL            string
	APIKey         string
	Collection     string
	Dimension      int
	ScoreThreshold float64
	Timeout        time.Duration
}

// Index is a qdrant-backed article vector index over the REST API. It owns
// the embedding step: callers hand it text, it stores and searches vectors.
type Index struct {
	cfg      Config
	embedder provider.Embedder
	client   *http.Client
	logger   *log.Logger
}

// NewIndex creates a new article index. Initialize must be called before use.
func NewIndex(cfg Config, embedder provider.Embedder) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Index{
		cfg:      cfg,
		embedder: embedder,
		client:   &http.Client{Timeout: timeout},
		logger:   log.New(log.Writer(), "[QDRANT] ", log.LstdFlags),
	}
}

// Initialize ensures the collection exists with the configured dimensionality
// and cosine distance. Idempotent: an existing collection is left untouched.
func (i *Index) Initialize(ctx context.Context) error {
	var listing struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := i.getJSON(ctx, "/collections", &listing); err != nil {
		return fmt.Errorf("%w: list collections: %v", models.ErrBackendUnavailable, err)
	}
	for _, col := range listing.Result.Collections {
		if col.Name == i.cfg.Collection {
			i.logger.Printf("collection %s already exists", i.cfg.Collection)
			return nil
		}
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     i.cfg.Dimension,
			"distance": "Cosine",
		},
	}
	if err := i.putJSON(ctx, "/collections/"+i.cfg.Collection, body); err != nil {
		return fmt.Errorf("%w: create collection: %v", models.ErrBackendUnavailable, err)
	}
	i.logger.Printf("collection %s created", i.cfg.Collection)
	return nil
}

// AddDocument embeds text and upserts the point with its payload. A failed
// upsert after a successful embedding is still a full failure of this call.
func (i *Index) AddDocument(ctx context.Context, id, text string, meta models.ArticleMeta) error {
	vector, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return err
	}

	body := map[string]any{
		"points": []map[string]any{
			{
				"id":     id,
				"vector": vector,
				"payload": models.ArticlePayload{
					Text:        text,
					ArticleMeta: meta,
				},
			},
		},
	}
	if err := i.putJSON(ctx, "/collections/"+i.cfg.Collection+"/points?wait=true", body); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreWrite, err)
	}
	return nil
}

// SearchSimilar embeds the query and returns up to limit articles that clear
// the score threshold, best first. No match is an empty result, not an error.
func (i *Index) SearchSimilar(ctx context.Context, query string, limit int) ([]models.RetrievalResult, error) {
	vector, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	req := map[string]any{
		"vector":          vector,
		"limit":           limit,
		"with_payload":    true,
		"score_threshold": i.cfg.ScoreThreshold,
	}
	var resp struct {
		Result []struct {
			ID      any                   `json:"id"`
			Score   float64               `json:"score"`
			Payload models.ArticlePayload `json:"payload"`
		} `json:"result"`
	}
	if err := i.postJSON(ctx, "/collections/"+i.cfg.Collection+"/points/search", req, &resp); err != nil {
		return nil, fmt.Errorf("%w: search: %v", models.ErrBackendUnavailable, err)
	}

	results := make([]models.RetrievalResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, models.RetrievalResult{
			ID:      fmt.Sprint(r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return results, nil
}

// CollectionInfo reports point count and status, for observability only.
func (i *Index) CollectionInfo(ctx context.Context) (models.CollectionInfo, error) {
	var resp struct {
		Result struct {
			Status      string `json:"status"`
			PointsCount int64  `json:"points_count"`
		} `json:"result"`
	}
	if err := i.getJSON(ctx, "/collections/"+i.cfg.Collection, &resp); err != nil {
		return models.CollectionInfo{}, fmt.Errorf("%w: collection info: %v", models.ErrBackendUnavailable, err)
	}
	return models.CollectionInfo{Status: resp.Result.Status, PointsCount: resp.Result.PointsCount}, nil
}

func (i *Index) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.cfg.URL+path, nil)
	if err != nil {
		return err
	}
	return i.do(req, out)
}

func (i *Index) putJSON(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, i.cfg.URL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return i.do(req, nil)
}

func (i *Index) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.cfg.URL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return i.do(req, out)
}

func (i *Index) do(req *http.Request, out any) error {
	if i.cfg.APIKey != "" {
		req.Header.Set("api-key", i.cfg.APIKey)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("qdrant %s %s failed: %s: %s", req.Method, req.URL.Path, resp.Status, string(b))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
