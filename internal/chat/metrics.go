package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsrag_chat_messages_total",
		Help: "Inbound chat messages processed.",
	})

	exchangeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsrag_chat_errors_total",
		Help: "Exchanges aborted by stage.",
	}, []string{"stage"})

	retrievedArticlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsrag_retrieved_articles_total",
		Help: "Articles returned by similarity search.",
	})

	fallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsrag_generation_fallbacks_total",
		Help: "Templated fallback responses served by cause.",
	}, []string{"cause"})
)
