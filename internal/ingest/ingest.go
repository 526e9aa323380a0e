package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/mohammad-safakhou/newsrag/config"
	"github.com/mohammad-safakhou/newsrag/models"
)

const (
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	maxBodyBytes = 2 << 20
	maxTitleLen  = 200
)

// DocumentSink is the ingestion interface of the vector index. The ingestor
// is a data producer only: it fetches, cleans and truncates article text,
// then hands documents over.
type DocumentSink interface {
	AddDocument(ctx context.Context, id, text string, meta models.ArticleMeta) error
}

// Ingestor pulls articles from RSS feeds into the vector index.
type Ingestor struct {
	sink       DocumentSink
	cfg        config.IngestConfig
	parser     *gofeed.Parser
	httpClient *http.Client
	logger     *log.Logger
}

// New creates an RSS ingestor writing into sink.
func New(sink DocumentSink, cfg config.IngestConfig) *Ingestor {
	return &Ingestor{
		sink:       sink,
		cfg:        cfg,
		parser:     gofeed.NewParser(),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     log.New(log.Writer(), "[INGEST] ", log.LstdFlags),
	}
}

type article struct {
	title   string
	content string
}

// Run walks the configured feeds and ingests up to the global article cap,
// honoring the per-feed cap and a polite delay between fetches. Individual
// article failures are tallied, not fatal.
func (in *Ingestor) Run(ctx context.Context) error {
	in.logger.Printf("starting ingestion from %d feeds", len(in.cfg.Feeds))

	count := 0
	failed := 0
	for _, feedURL := range in.cfg.Feeds {
		if count >= in.cfg.MaxArticles {
			break
		}
		feed, err := in.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			in.logger.Printf("feed %s: %v", feedURL, err)
			failed++
			continue
		}
		in.logger.Printf("feed %s: %d items", feedURL, len(feed.Items))

		items := feed.Items
		if in.cfg.PerFeed > 0 && len(items) > in.cfg.PerFeed {
			items = items[:in.cfg.PerFeed]
		}
		for _, item := range items {
			if count >= in.cfg.MaxArticles {
				break
			}
			if item.Link == "" {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			art, err := in.fetchArticle(ctx, item.Link)
			if err != nil {
				in.logger.Printf("fetch %s: %v", item.Link, err)
				failed++
				continue
			}
			if len(art.content) < in.cfg.MinContent {
				in.logger.Printf("skipping %s: insufficient content", item.Link)
				continue
			}

			now := time.Now().UTC().Format(time.RFC3339)
			published := item.Published
			if published == "" {
				published = now
			}
			meta := models.ArticleMeta{
				Title:      art.title,
				URL:        item.Link,
				Source:     feedURL,
				Published:  published,
				IngestedAt: now,
			}
			if err := in.sink.AddDocument(ctx, uuid.NewString(), art.title+". "+art.content, meta); err != nil {
				in.logger.Printf("add document %s: %v", item.Link, err)
				failed++
				continue
			}
			count++
			articlesIngestedTotal.Inc()
			in.logger.Printf("ingested article %d: %s", count, art.title)

			select {
			case <-time.After(in.cfg.FetchDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	in.logger.Printf("ingestion complete: %d ingested, %d failed", count, failed)
	if count == 0 && failed > 0 {
		return fmt.Errorf("ingestion produced no articles (%d failures)", failed)
	}
	return nil
}

// fetchArticle downloads a page and extracts readable title and text. The
// content is whitespace-collapsed and truncated to the configured cap before
// it ever reaches the index.
func (in *Ingestor) fetchArticle(ctx context.Context, link string) (article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return article{}, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := in.httpClient.Do(req)
	if err != nil {
		return article{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return article{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return article{}, err
	}

	pageURL, err := url.Parse(link)
	if err != nil {
		return article{}, err
	}

	title, content := extract(body, pageURL)
	if title == "" || content == "" {
		return article{}, fmt.Errorf("no title or content found")
	}
	return article{
		title:   truncate(title, maxTitleLen),
		content: truncate(content, in.cfg.ContentCap),
	}, nil
}

// extract prefers readability's article view and falls back to the page
// <title>/<h1> when it comes back without one.
func extract(body []byte, pageURL *url.URL) (title, content string) {
	art, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil {
		title = clean(art.Title)
		content = clean(art.TextContent)
	}
	if title != "" && content != "" {
		return title, content
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return title, content
	}
	if title == "" {
		title = clean(doc.Find("title").First().Text())
		if title == "" {
			title = clean(doc.Find("h1").First().Text())
		}
	}
	if content == "" {
		doc.Find("script, style, nav, header, footer, iframe").Remove()
		content = clean(doc.Find("body").Text())
	}
	return title, content
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
