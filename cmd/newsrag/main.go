package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Optional .env for local development; real deployments set env directly.
	_ = godotenv.Load()

	root := &cobra.Command{Use: "newsrag", Short: "News RAG chat backend"}
	root.AddCommand(serveCMD(), ingestCMD(), infoCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
