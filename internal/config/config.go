// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type AIConfig struct {
	OpenAIKey       string        `yaml:"openai_key"`
	OpenAIBaseURL   string        `yaml:"openai_base_url"` // optional OpenAI-compatible gateway
	GeminiKey       string        `yaml:"gemini_key"`
	EmbeddingModel  string        `yaml:"embedding_model"`
	Dimensions      int           `yaml:"dimensions"`
	EmbedTimeout    time.Duration `yaml:"embed_timeout"`
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max in-flight embedding calls
	LLMModel        string        `yaml:"llm_model"`        // empty disables LLM enrichment
}

// QueueKindConfig tunes one task kind's worker pool and retry policy.
type QueueKindConfig struct {
	Concurrency int           `yaml:"concurrency"`
	MaxAttempts int           `yaml:"max_attempts"`
	Timeout     time.Duration `yaml:"timeout"`
	BackoffBase time.Duration `yaml:"backoff_base"`
	BackoffMax  time.Duration `yaml:"backoff_max"`
}

type PipelineConfig struct {
	Extract      QueueKindConfig `yaml:"extract"`
	Enrich       QueueKindConfig `yaml:"enrich"`
	EmbedKeyword QueueKindConfig `yaml:"embed_keyword"`
}

type ExtractConfig struct {
	JobBoardPatterns []string `yaml:"job_board_patterns"` // substring allow-list, e.g. "greenhouse.io"
	TrackingParams   []string `yaml:"tracking_params"`    // extra params stripped on normalization
	TitleMaxLen      int      `yaml:"title_max_len"`
}

type EnrichConfig struct {
	MinDescriptionLen int               `yaml:"min_description_len"`
	FetchTimeout      time.Duration     `yaml:"fetch_timeout"`
	CrawlDenied       []string          `yaml:"crawl_denied"` // host substrings with fetching disabled
	CrawlReasons      map[string]string `yaml:"crawl_reasons"`
	HostRateLimit     int               `yaml:"host_rate_limit"` // fetches per host per minute
}

type FilterConfig struct {
	Threshold float64 `yaml:"threshold"`
}

type ScanConfig struct {
	Cron             string        `yaml:"cron"` // robfig/cron spec, e.g. "@every 30m"
	Lookback         time.Duration `yaml:"lookback"`
	BatchSize        int           `yaml:"batch_size"`
	BackfillInterval time.Duration `yaml:"backfill_interval"`
}

type WebConfig struct {
	Port        int           `yaml:"port"`
	AdminSecret string        `yaml:"admin_secret"` // HMAC secret for session tokens
	AdminPass   string        `yaml:"admin_pass"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
}

// MailConfig selects the message source. With an empty fixture path the
// pipeline runs without a mail provider and scans find nothing.
type MailConfig struct {
	FixturePath string `yaml:"fixture_path"`
}

type NotifyConfig struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Extract  ExtractConfig  `yaml:"extract"`
	Enrich   EnrichConfig   `yaml:"enrich"`
	Filter   FilterConfig   `yaml:"filter"`
	Scan     ScanConfig     `yaml:"scan"`
	Mail     MailConfig     `yaml:"mail"`
	Web      WebConfig      `yaml:"web"`
	Notify   NotifyConfig   `yaml:"notify"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.CacheTTL <= 0 {
		cfg.Redis.CacheTTL = time.Hour
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.AI.Dimensions <= 0 {
		cfg.AI.Dimensions = 1536
	}
	if cfg.AI.EmbedTimeout <= 0 {
		cfg.AI.EmbedTimeout = 20 * time.Second
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 8
	}
	cfg.Pipeline.Extract = normalizeKind(cfg.Pipeline.Extract, 30*time.Second)
	cfg.Pipeline.Enrich = normalizeKind(cfg.Pipeline.Enrich, 2*time.Minute)
	cfg.Pipeline.EmbedKeyword = normalizeKind(cfg.Pipeline.EmbedKeyword, 30*time.Second)
	if cfg.Extract.TitleMaxLen <= 0 {
		cfg.Extract.TitleMaxLen = 120
	}
	if cfg.Enrich.MinDescriptionLen <= 0 {
		cfg.Enrich.MinDescriptionLen = 100
	}
	if cfg.Enrich.FetchTimeout <= 0 {
		cfg.Enrich.FetchTimeout = 30 * time.Second
	}
	if cfg.Enrich.HostRateLimit <= 0 {
		cfg.Enrich.HostRateLimit = 30
	}
	if cfg.Filter.Threshold <= 0 {
		cfg.Filter.Threshold = 0.65
	}
	if cfg.Scan.Cron == "" {
		cfg.Scan.Cron = "@every 30m"
	}
	if cfg.Scan.Lookback <= 0 {
		cfg.Scan.Lookback = 7 * 24 * time.Hour
	}
	if cfg.Scan.BatchSize <= 0 {
		cfg.Scan.BatchSize = 100
	}
	if cfg.Scan.BackfillInterval <= 0 {
		cfg.Scan.BackfillInterval = time.Hour
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Web.SessionTTL <= 0 {
		cfg.Web.SessionTTL = 30 * time.Minute
	}

	// minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.Addr == "" {
		return nil, errors.New("redis.addr is required")
	}
	if !dev && cfg.AI.OpenAIKey == "" && cfg.AI.GeminiKey == "" {
		return nil, errors.New("ai.openai_key or ai.gemini_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeKind(k QueueKindConfig, timeout time.Duration) QueueKindConfig {
	if k.Concurrency <= 0 {
		k.Concurrency = 3
	}
	if k.MaxAttempts <= 0 {
		k.MaxAttempts = 3
	}
	if k.Timeout <= 0 {
		k.Timeout = timeout
	}
	if k.BackoffBase <= 0 {
		k.BackoffBase = 5 * time.Second
	}
	if k.BackoffMax <= 0 {
		k.BackoffMax = 5 * time.Minute
	}
	return k
}
