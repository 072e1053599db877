package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	DBDSN         string           `json:"db_dsn"`
	MigrationsDir string           `json:"migrations_dir"`
	JWTSecret     string           `json:"jwt_secret"`
	JWTTTLHours   int              `json:"jwt_ttl_hours"`
	CORSOrigins   []string         `json:"cors_origins"`
	Admin         AdminConfig      `json:"admin"`
	LogConfig     logger.LogConfig `json:"log_config"`
	AI            AIConfig         `json:"ai"`
	Chunker       ChunkerConfig    `json:"chunker"`
	Index         IndexConfig      `json:"index"`
	Lark          LarkConfig       `json:"lark"`
	News          NewsConfig       `json:"news"`
	Jobs          JobsConfig       `json:"jobs"`
	DocStore      DocStoreConfig   `json:"doc_store"`
}

type AdminConfig struct {
	User         string `json:"user"`
	PasswordHash string `json:"password_hash"`
}

type AIConfig struct {
	Provider   string      `json:"provider"`
	Data       interface{} `json:"data"`
	ChatModel  string      `json:"chat_model"`
	EmbedModel string      `json:"embed_model"`
	EmbedDim   int         `json:"embed_dim"`
	Timeout    int         `json:"timeout_seconds"`
}

type ChunkerConfig struct {
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
	Encoding     string `json:"encoding"`
}

type IndexConfig struct {
	Collection string `json:"collection"`
	TopK       int    `json:"top_k"`
}

type LarkConfig struct {
	WebhookURL        string `json:"webhook_url"`
	AppID             string `json:"app_id"`
	AppSecret         string `json:"app_secret"`
	VerificationToken string `json:"verification_token"`
	BotName           string `json:"bot_name"`
	BaseURL           string `json:"base_url"`
}

type NewsConfig struct {
	NewsAPIKey  string   `json:"newsapi_key"`
	NewsDataKey string   `json:"newsdata_key"`
	Country     string   `json:"country"`
	Sources     []string `json:"sources"`
}

type JobsConfig struct {
	NewsDigestSpec string `json:"news_digest_spec"`
	IndexStatsSpec string `json:"index_stats_spec"`
}

type DocStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.DBDSN == "" {
		return fmt.Errorf("db_dsn is required")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = "./migrations"
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Provider == "" {
		return fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.ChatModel == "" || cfg.AI.EmbedModel == "" {
		return fmt.Errorf("ai.chat_model and ai.embed_model are required")
	}
	if cfg.AI.EmbedDim == 0 {
		cfg.AI.EmbedDim = 1536
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 30
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 500
	}
	if cfg.Chunker.ChunkOverlap == 0 {
		cfg.Chunker.ChunkOverlap = 50
	}
	// The sliding window only makes forward progress when the overlap is
	// strictly smaller than the window. Reject bad values here instead of
	// looping forever at ingestion time.
	if cfg.Chunker.ChunkOverlap < 0 || cfg.Chunker.ChunkOverlap >= cfg.Chunker.ChunkSize {
		return fmt.Errorf("chunker.chunk_overlap must be in [0, chunk_size)")
	}
	if cfg.Chunker.Encoding == "" {
		cfg.Chunker.Encoding = "cl100k_base"
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = "compliance_docs"
	}
	if cfg.Index.TopK == 0 {
		cfg.Index.TopK = 5
	}
	if cfg.Lark.BotName == "" {
		cfg.Lark.BotName = "NewsBot"
	}
	if cfg.Lark.BaseURL == "" {
		cfg.Lark.BaseURL = "https://open.larksuite.com"
	}
	if cfg.News.Country == "" {
		cfg.News.Country = "hk"
	}
	if cfg.Jobs.NewsDigestSpec == "" {
		cfg.Jobs.NewsDigestSpec = "30 7 * * *"
	}
	if cfg.Jobs.IndexStatsSpec == "" {
		cfg.Jobs.IndexStatsSpec = "0 * * * *"
	}
	if cfg.DocStore.Type == "" {
		cfg.DocStore.Type = "local"
	}
	return nil
}
