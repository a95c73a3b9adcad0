// Package config loads the per-stage configuration document described
// in §6.5, layering defaults → optional YAML file → environment
// variables (highest priority), the same koanf-based layering
// tomtom215-cartographus's internal/config/koanf.go uses. The nested
// redis.*/deduplication.*/analytics.*/sentiment.*/retention.*/
// notification.* trees need koanf's struct-tag binding rather than a
// hand-rolled getEnv/getEnvInt reader; the .env-then-environment load
// order (joho/godotenv) is kept from the single-file version this
// replaces.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// RedisConfig is §6.5's redis.* tree.
type RedisConfig struct {
	Host        string `koanf:"host"`
	Port        int    `koanf:"port"`
	Password    string `koanf:"password"`
	ScrapeDB    int    `koanf:"scrape_db"`
	CleanDB     int    `koanf:"clean_db"`
	AnalyticsDB int    `koanf:"analytics_db"`

	RawQueue   string `koanf:"raw_queue"`
	CleanQueue string `koanf:"clean_queue"`
	IdCacheKey string `koanf:"id_cache_key"`
}

// Addr returns the host:port Redis dial address.
func (r RedisConfig) Addr() string { return fmt.Sprintf("%s:%d", r.Host, r.Port) }

// DedupConfig is §6.5's deduplication.* tree.
type DedupConfig struct {
	Mode         string `koanf:"mode"` // "permanent" | "time_window"
	WindowHours  int    `koanf:"window_hours"`
	ClearOnStart bool   `koanf:"clear_on_start"`
}

// Window returns WindowHours as a time.Duration.
func (d DedupConfig) Window() time.Duration { return time.Duration(d.WindowHours) * time.Hour }

// AnalyticsConfig is §6.5's analytics.* tree.
type AnalyticsConfig struct {
	CurrentWindowMinutes  int `koanf:"current_window_minutes"`
	HistoryHours          int `koanf:"history_hours"` // fixed at 24 slots regardless of value
	TrendingKeywordsCount int `koanf:"trending_keywords_count"`
	WordCloudCount        int `koanf:"word_cloud_count"`
	NewsFeedCount         int `koanf:"news_feed_count"`
}

func (a AnalyticsConfig) CurrentWindow() time.Duration {
	return time.Duration(a.CurrentWindowMinutes) * time.Minute
}

// SentimentConfig is §6.5's sentiment.* tree.
type SentimentConfig struct {
	Enabled             bool `koanf:"enabled"`
	BatchSize           int  `koanf:"batch_size"`
	DeferWriteBack      bool `koanf:"defer_write_back"`
	FallbackToHeuristic bool `koanf:"fallback_to_heuristic"`
}

// RetentionConfig is §6.5's retention.* tree.
type RetentionConfig struct {
	Hours    int   `koanf:"hours"`
	MaxItems int64 `koanf:"max_items"`
}

func (r RetentionConfig) Age() time.Duration { return time.Duration(r.Hours) * time.Hour }

// ListenConfig/SendConfig are §6.5's notification.listen.* and
// notification.send.* trees.
type ListenConfig struct {
	Enabled bool   `koanf:"enabled"`
	Channel string `koanf:"channel"`
	Mode    string `koanf:"mode"` // "event_driven" | "continuous" | "once"
}

type SendConfig struct {
	Enabled bool   `koanf:"enabled"`
	Channel string `koanf:"channel"`
}

type NotificationConfig struct {
	Listen ListenConfig `koanf:"listen"`
	Send   SendConfig   `koanf:"send"`
}

// ServeConfig configures the Read API's HTTP/WS surface (§4.5, §6.4).
type ServeConfig struct {
	Addr           string        `koanf:"addr"`
	AuthKey        string        `koanf:"auth_key"` // blank disables the bearer-token gate
	RequestTimeout time.Duration `koanf:"request_timeout"`
	RateLimitRPS   float64       `koanf:"rate_limit_rps"`
	RateLimitBurst int           `koanf:"rate_limit_burst"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
}

// ScrapeConfig configures the scrape stage's --loop/--interval CLI
// surface (§6.4).
type ScrapeConfig struct {
	Loop     bool `koanf:"loop"`
	Interval int  `koanf:"interval_sec"`
}

// BatchTriggerConfig lets Clean wait for raw_queue to accumulate
// before running a pass, rather than cleaning on every single
// scrape_done notification regardless of how few items arrived.
// MinItems=1 (the default) preserves the original trigger-on-every-
// notification behavior.
type BatchTriggerConfig struct {
	MinItems int           `koanf:"min_items"`
	MaxWait  time.Duration `koanf:"max_wait"`
}

// Config is the single document all four stages load; each stage only
// reads the sub-trees relevant to it (§6.5 "one document per stage,
// merged from defaults" — in practice one shared schema).
type Config struct {
	Env             string        `koanf:"env"`
	LogLevel        string        `koanf:"log_level"`
	PollIntervalSec int           `koanf:"poll_interval_sec"`
	BatchSize       int           `koanf:"batch_size"`
	GracefulTimeout time.Duration `koanf:"graceful_timeout"`
	MetricsAddr     string        `koanf:"metrics_addr"` // blank disables the /metrics listener

	Redis        RedisConfig        `koanf:"redis"`
	Dedup        DedupConfig        `koanf:"deduplication"`
	Analytics    AnalyticsConfig    `koanf:"analytics"`
	Sentiment    SentimentConfig    `koanf:"sentiment"`
	Retention    RetentionConfig    `koanf:"retention"`
	Notification NotificationConfig `koanf:"notification"`
	Serve        ServeConfig        `koanf:"serve"`
	Scrape       ScrapeConfig       `koanf:"scrape"`
	CleanTrigger BatchTriggerConfig `koanf:"clean_trigger"`
}

func defaultConfig() *Config {
	return &Config{
		Env:             "development",
		LogLevel:        "info",
		PollIntervalSec: 30,
		BatchSize:       100,
		GracefulTimeout: 15 * time.Second,
		MetricsAddr:     ":9090",
		Redis: RedisConfig{
			Host:        "localhost",
			Port:        6379,
			ScrapeDB:    0,
			CleanDB:     1,
			AnalyticsDB: 2,
			RawQueue:    "raw_queue",
			CleanQueue:  "clean_queue",
			IdCacheKey:  "set:cleaned_ids",
		},
		Dedup: DedupConfig{
			Mode:        "time_window",
			WindowHours: 24,
		},
		Analytics: AnalyticsConfig{
			CurrentWindowMinutes:  60,
			HistoryHours:          24,
			TrendingKeywordsCount: 10,
			WordCloudCount:        20,
			NewsFeedCount:         20,
		},
		Sentiment: SentimentConfig{
			Enabled:             true,
			BatchSize:           32,
			DeferWriteBack:      true,
			FallbackToHeuristic: true,
		},
		Retention: RetentionConfig{
			Hours:    24,
			MaxItems: 10000,
		},
		Notification: NotificationConfig{
			Listen: ListenConfig{Enabled: true, Channel: "clean_done", Mode: "event_driven"},
			Send:   SendConfig{Enabled: true, Channel: "analytics_done"},
		},
		Serve: ServeConfig{
			Addr:           ":8090",
			RequestTimeout: 10 * time.Second,
			RateLimitRPS:   5,
			RateLimitBurst: 10,
			AllowedOrigins: []string{"*"},
		},
		Scrape:       ScrapeConfig{Loop: false, Interval: 300},
		CleanTrigger: BatchTriggerConfig{MinItems: 1, MaxWait: 5 * time.Second},
	}
}

// DefaultConfigPaths lists where a config file is searched for, first
// match wins (cartographus's internal/config/koanf.go convention).
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/marketpulse/config.yaml",
}

// ConfigPathEnvVar overrides the search path entirely.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load layers defaults, an optional YAML file, and environment
// variables (highest priority). godotenv.Load runs first so a local
// .env populates os.Environ before koanf's env provider reads it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("MARKETPULSE_", ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// envTransform maps MARKETPULSE_REDIS_HOST -> redis.host by dropping
// the prefix, lowercasing, and turning every underscore into a dot. A
// key whose own name contains an underscore is therefore not reachable
// from the environment: MARKETPULSE_DEDUPLICATION_WINDOW_HOURS becomes
// deduplication.window.hours, not deduplication.window_hours.
func envTransform(s string) string {
	s = strings.TrimPrefix(s, "MARKETPULSE_")
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks the config-error class from §7: fatal, non-sensical
// settings at startup.
func (c *Config) Validate() error {
	switch c.Dedup.Mode {
	case "permanent", "time_window":
	default:
		return fmt.Errorf("deduplication.mode must be permanent or time_window, got %q", c.Dedup.Mode)
	}
	if c.Retention.Hours <= 0 {
		return fmt.Errorf("retention.hours must be positive")
	}
	if c.Analytics.TrendingKeywordsCount < 0 || c.Analytics.WordCloudCount < 0 {
		return fmt.Errorf("analytics keyword/word-cloud counts must be non-negative")
	}
	return nil
}

// IsDevelopment reports whether the loaded Env is "development".
func (c *Config) IsDevelopment() bool { return c.Env == "development" }
