package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/newsrag/config"
	"github.com/mohammad-safakhou/newsrag/repository"
)

func infoCMD() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show vector store collection info",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)

			// Collection info never embeds, no embedder needed.
			index := repository.NewArticleIndex(cfg.Qdrant, nil)
			info, err := index.CollectionInfo(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("collection: %s\nstatus: %s\npoints: %d\n", cfg.Qdrant.Collection, info.Status, info.PointsCount)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")
	return cmd
}
