package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var articlesIngestedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "newsrag_articles_ingested_total",
	Help: "Articles successfully written to the vector index.",
})
