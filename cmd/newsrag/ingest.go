package main

import (
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/newsrag/config"
	"github.com/mohammad-safakhou/newsrag/internal/ingest"
	"github.com/mohammad-safakhou/newsrag/provider"
	"github.com/mohammad-safakhou/newsrag/repository"
)

func ingestCMD() *cobra.Command {
	var cfgPath string
	var schedule string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Pull articles from RSS feeds into the vector index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			embedder, err := provider.NewEmbedder(cfg.Embedding)
			if err != nil {
				return err
			}
			index := repository.NewArticleIndex(cfg.Qdrant, embedder)
			if err := index.Initialize(ctx); err != nil {
				return err
			}

			ing := ingest.New(index, cfg.Ingest)
			if schedule == "" {
				return ing.Run(ctx)
			}

			expr, err := cronexpr.Parse(schedule)
			if err != nil {
				return err
			}
			for {
				if err := ing.Run(ctx); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					log.Printf("ingestion run failed: %v", err)
				}
				next := expr.Next(time.Now())
				log.Printf("next ingestion run at %s", next.Format(time.RFC3339))
				select {
				case <-time.After(time.Until(next)):
				case <-ctx.Done():
					return nil
				}
			}
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression to re-run ingestion on")
	return cmd
}
