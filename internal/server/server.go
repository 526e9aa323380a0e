package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/newsrag/config"
	"github.com/mohammad-safakhou/newsrag/internal/chat"
	"github.com/mohammad-safakhou/newsrag/models"
	"github.com/mohammad-safakhou/newsrag/provider"
	"github.com/mohammad-safakhou/newsrag/repository"
)

// Run wires every service and starts the HTTP server. The vector index
// connection and the probed model are built once here and injected; nothing
// looks services up ambiently.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	// Liveness only: no dependency health aggregate.
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()

	embedder, err := provider.NewEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}

	index := repository.NewArticleIndex(cfg.Qdrant, embedder)
	if err := index.Initialize(ctx); err != nil {
		return err
	}

	historyRepo, err := repository.NewHistoryRepository(ctx, cfg.Redis)
	if err != nil {
		return err
	}

	generator, err := provider.NewGenerator(cfg.Gemini)
	if err != nil {
		return err
	}
	if err := generator.Probe(ctx); err != nil {
		if !errors.Is(err, models.ErrNoModelAvailable) {
			return err
		}
		// Generation degrades to templated fallbacks until a re-probe; the
		// chat pipeline itself stays up.
		log.Printf("WARNING: %v - serving fallback responses", err)
	}

	respGen := chat.NewResponseGenerator(generator, cfg.Chat)
	orch := chat.NewOrchestrator(historyRepo, index, respGen, cfg.Chat.TopK)

	ws := NewWSHandler(orch)
	e.GET("/ws", ws.Serve)

	addr := cfg.General.Listen
	if addr == "" {
		addr = ":5000"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
