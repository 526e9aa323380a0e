package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/mohammad-safakhou/newsrag/config"
	"github.com/mohammad-safakhou/newsrag/models"
)

type recordedDoc struct {
	id   string
	text string
	meta models.ArticleMeta
}

type recordingSink struct {
	mu   sync.Mutex
	docs []recordedDoc
	err  error
}

func (s *recordingSink) AddDocument(ctx context.Context, id, text string, meta models.ArticleMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.docs = append(s.docs, recordedDoc{id: id, text: text, meta: meta})
	return nil
}

func articleHTML(title string, paragraphs int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body><h1>%s</h1><article>", title, title)
	for i := 0; i < paragraphs; i++ {
		fmt.Fprintf(&b, "<p>Paragraph %d of the story body with enough words to read like a real news article about current events.</p>", i)
	}
	b.WriteString("</article></body></html>")
	return b.String()
}

func feedXML(base string, items int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>Test Feed</title>`)
	for i := 0; i < items; i++ {
		fmt.Fprintf(&b, "<item><title>Story %d</title><link>%s/article/%d</link><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>", i, base, i)
	}
	b.WriteString("</channel></rss>")
	return b.String()
}

// newsSite serves one RSS feed and the article pages it links to.
func newsSite(t *testing.T, items int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, feedXML(srv.URL, items))
	})
	mux.HandleFunc("/article/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/article/")
		fmt.Fprint(w, articleHTML("Story "+id+" Headline", 8))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testIngestConfig(feedURL string) config.IngestConfig {
	return config.IngestConfig{
		Feeds:       []string{feedURL},
		MaxArticles: 50,
		PerFeed:     15,
		ContentCap:  1500,
		MinContent:  100,
		FetchDelay:  0,
	}
}

func TestRunIngestsFeed(t *testing.T) {
	srv := newsSite(t, 2)
	sink := &recordingSink{}

	in := New(sink, testIngestConfig(srv.URL+"/feed"))
	if err := in.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sink.docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(sink.docs))
	}
	doc := sink.docs[0]
	if doc.id == "" {
		t.Fatal("document missing id")
	}
	if !strings.HasPrefix(doc.text, doc.meta.Title+". ") {
		t.Fatalf("document text should start with the title: %q", doc.text)
	}
	if doc.meta.URL == "" || doc.meta.Source != srv.URL+"/feed" {
		t.Fatalf("unexpected meta: %+v", doc.meta)
	}
	if doc.meta.Published == "" || doc.meta.IngestedAt == "" {
		t.Fatalf("expected timestamps set: %+v", doc.meta)
	}
}

func TestRunHonorsPerFeedCap(t *testing.T) {
	srv := newsSite(t, 5)
	sink := &recordingSink{}

	cfg := testIngestConfig(srv.URL + "/feed")
	cfg.PerFeed = 2
	if err := New(sink, cfg).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.docs) != 2 {
		t.Fatalf("expected per-feed cap of 2, got %d documents", len(sink.docs))
	}
}

func TestRunHonorsGlobalCap(t *testing.T) {
	srv := newsSite(t, 5)
	sink := &recordingSink{}

	cfg := testIngestConfig(srv.URL + "/feed")
	cfg.MaxArticles = 1
	if err := New(sink, cfg).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.docs) != 1 {
		t.Fatalf("expected global cap of 1, got %d documents", len(sink.docs))
	}
}

func TestRunSkipsThinArticles(t *testing.T) {
	srv := newsSite(t, 2)
	sink := &recordingSink{}

	cfg := testIngestConfig(srv.URL + "/feed")
	cfg.MinContent = 100000
	if err := New(sink, cfg).Run(context.Background()); err != nil {
		t.Fatalf("skips are not failures: %v", err)
	}
	if len(sink.docs) != 0 {
		t.Fatalf("expected all articles skipped, got %d", len(sink.docs))
	}
}

func TestRunAllFeedsFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	sink := &recordingSink{}
	err := New(sink, testIngestConfig(srv.URL+"/feed")).Run(context.Background())
	if err == nil {
		t.Fatal("expected error when nothing could be ingested")
	}
}

func TestRunAllSinkWritesFailing(t *testing.T) {
	srv := newsSite(t, 2)
	sink := &recordingSink{err: fmt.Errorf("index write refused")}

	err := New(sink, testIngestConfig(srv.URL+"/feed")).Run(context.Background())
	if err == nil {
		t.Fatal("expected error when every document write failed")
	}
}

func TestRunContextCancelled(t *testing.T) {
	srv := newsSite(t, 5)
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(sink, testIngestConfig(srv.URL+"/feed")).Run(ctx)
	if err == nil && len(sink.docs) != 0 {
		t.Fatalf("expected cancelled run to stop, got %d documents", len(sink.docs))
	}
}

func TestExtractFallsBackToPageTitle(t *testing.T) {
	// Too little structure for readability, enough for the goquery fallback.
	body := []byte(`<html><head><title>Bare Page</title></head><body><script>var x=1;</script><p>short body text</p></body></html>`)
	u, _ := url.Parse("http://example.com/a")

	title, content := extract(body, u)
	if title != "Bare Page" {
		t.Fatalf("expected page title fallback, got %q", title)
	}
	if !strings.Contains(content, "short body text") {
		t.Fatalf("expected body text, got %q", content)
	}
	if strings.Contains(content, "var x=1") {
		t.Fatalf("script content must be stripped: %q", content)
	}
}

func TestClean(t *testing.T) {
	got := clean("  line one\n\t line   two  ")
	if got != "line one line two" {
		t.Fatalf("unexpected clean result: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abcd" {
		t.Fatalf("expected abcd, got %q", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Fatalf("expected unchanged string, got %q", got)
	}
	if got := truncate("abc", 0); got != "abc" {
		t.Fatalf("zero cap must not truncate, got %q", got)
	}
}
