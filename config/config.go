package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the chat backend.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
}

// GeneralConfig contains process-wide settings.
type GeneralConfig struct {
	Listen string `mapstructure:"listen"`
	Debug  bool   `mapstructure:"debug"`
}

// RedisConfig contains session store settings.
type RedisConfig struct {
	Host       string        `mapstructure:"host"`
	Port       string        `mapstructure:"port"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	Timeout    time.Duration `mapstructure:"timeout"`
	HistoryTTL time.Duration `mapstructure:"history_ttl"`
}

// QdrantConfig contains vector store settings.
type QdrantConfig struct {
	URL            string        `mapstructure:"url"`
	APIKey         string        `mapstructure:"api_key"`
	Collection     string        `mapstructure:"collection"`
	Dimension      int           `mapstructure:"dimension"`
	ScoreThreshold float64       `mapstructure:"score_threshold"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// EmbeddingConfig contains embedding backend settings.
type EmbeddingConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GeminiConfig contains generative backend settings. Models are an ordered
// candidate list; the first one that answers the startup probe is adopted.
type GeminiConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Models  []string      `mapstructure:"models"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ChatConfig tunes the conversation pipeline.
type ChatConfig struct {
	TopK           int `mapstructure:"top_k"`
	HistoryWindow  int `mapstructure:"history_window"`
	ExcerptChars   int `mapstructure:"excerpt_chars"`
	MaxAnswerWords int `mapstructure:"max_answer_words"`
}

// IngestConfig tunes the RSS data producer.
type IngestConfig struct {
	Feeds       []string      `mapstructure:"feeds"`
	MaxArticles int           `mapstructure:"max_articles"`
	PerFeed     int           `mapstructure:"per_feed"`
	ContentCap  int           `mapstructure:"content_cap"`
	MinContent  int           `mapstructure:"min_content"`
	FetchDelay  time.Duration `mapstructure:"fetch_delay"`
}

// LoadConfig loads config from file (optional) plus NEWSRAG_* environment
// variables, with defaults matching the reference deployment.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.listen", ":5000")
	viper.SetDefault("general.debug", false)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.timeout", 5*time.Second)
	viper.SetDefault("redis.history_ttl", time.Hour)

	viper.SetDefault("qdrant.url", "http://localhost:6333")
	viper.SetDefault("qdrant.api_key", "")
	viper.SetDefault("qdrant.collection", "news_articles")
	viper.SetDefault("qdrant.dimension", 768)
	viper.SetDefault("qdrant.score_threshold", 0.5)
	viper.SetDefault("qdrant.timeout", 15*time.Second)

	viper.SetDefault("embedding.base_url", "https://api.jina.ai")
	viper.SetDefault("embedding.api_key", "")
	viper.SetDefault("embedding.model", "jina-embeddings-v2-base-en")
	viper.SetDefault("embedding.timeout", 30*time.Second)

	viper.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("gemini.models", []string{
		"models/gemini-2.5-flash",
		"models/gemini-2.5-pro",
		"models/gemini-2.0-flash",
	})
	viper.SetDefault("gemini.timeout", 30*time.Second)

	viper.SetDefault("chat.top_k", 3)
	viper.SetDefault("chat.history_window", 3)
	viper.SetDefault("chat.excerpt_chars", 400)
	viper.SetDefault("chat.max_answer_words", 250)

	viper.SetDefault("ingest.feeds", []string{
		"https://rss.cnn.com/rss/edition.rss",
		"https://feeds.bbci.co.uk/news/rss.xml",
		"https://feeds.npr.org/1001/rss.xml",
	})
	viper.SetDefault("ingest.max_articles", 50)
	viper.SetDefault("ingest.per_feed", 15)
	viper.SetDefault("ingest.content_cap", 1500)
	viper.SetDefault("ingest.min_content", 100)
	viper.SetDefault("ingest.fetch_delay", 2*time.Second)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("NEWSRAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// The config file is optional; env vars and defaults are enough.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	return &config
}

// RedisAddr renders host:port for the go-redis client.
func (c RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}
