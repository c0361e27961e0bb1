// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Relevance RelevanceConfig `mapstructure:"relevance"`
	Media     MediaConfig     `mapstructure:"media"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Blob      BlobConfig      `mapstructure:"blob"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlConfig governs orchestrator batching and parallelism.
type CrawlConfig struct {
	Parallelism  int `mapstructure:"parallelism"`
	BatchSize    int `mapstructure:"batch_size"`
	MaxDepth     int `mapstructure:"max_depth_default"`
	AnchorMaxLen int `mapstructure:"anchor_max_len"`
}

// FetchConfig configures direct and archival fetch behavior.
type FetchConfig struct {
	UserAgent          string `mapstructure:"user_agent"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	ArchiveTimeoutSec  int    `mapstructure:"archive_timeout_seconds"`
	SnapshotTimeoutSec int    `mapstructure:"snapshot_timeout_seconds"`
}

// RelevanceConfig exposes the scoring constants; the exact values are tuning
// artifacts, not contracts, so they stay configurable.
type RelevanceConfig struct {
	TitleWeight    float64 `mapstructure:"title_weight"`
	ContentWeight  float64 `mapstructure:"content_weight"`
	MultiTermBonus float64 `mapstructure:"multi_term_bonus"`
	LanguageBoost  float64 `mapstructure:"language_boost"`
}

// MediaConfig bounds media download and analysis.
type MediaConfig struct {
	MaxFileSizeMB      int  `mapstructure:"max_file_size_mb"`
	DownloadTimeoutSec int  `mapstructure:"download_timeout_seconds"`
	DominantColors     int  `mapstructure:"dominant_colors"`
	DynamicPass        bool `mapstructure:"dynamic_pass"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for sub-batch dispatch and result collection.
type PubSubConfig struct {
	ProjectID          string `mapstructure:"project_id"`
	BatchTopic         string `mapstructure:"batch_topic"`
	ResultTopic        string `mapstructure:"result_topic"`
	BatchSubscription  string `mapstructure:"batch_subscription"`
	ResultSubscription string `mapstructure:"result_subscription"`
}

// BlobConfig sets the raw-HTML archive destination.
type BlobConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LANDCRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawl.parallelism", 4)
	v.SetDefault("crawl.batch_size", 100)
	v.SetDefault("crawl.max_depth_default", 2)
	v.SetDefault("crawl.anchor_max_len", 255)
	v.SetDefault("fetch.user_agent", "landcrawler/0.1")
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("fetch.archive_timeout_seconds", 10)
	v.SetDefault("fetch.snapshot_timeout_seconds", 15)
	v.SetDefault("relevance.title_weight", 10.0)
	v.SetDefault("relevance.content_weight", 1.0)
	v.SetDefault("relevance.multi_term_bonus", 0.5)
	v.SetDefault("relevance.language_boost", 1.1)
	v.SetDefault("media.max_file_size_mb", 10)
	v.SetDefault("media.download_timeout_seconds", 30)
	v.SetDefault("media.dominant_colors", 5)
	v.SetDefault("media.dynamic_pass", false)
	v.SetDefault("blob.provider", "noop")
	v.SetDefault("blob.prefix", "pages")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawl.Parallelism <= 0 {
		return fmt.Errorf("crawl.parallelism must be > 0")
	}
	if c.Crawl.BatchSize <= 0 {
		return fmt.Errorf("crawl.batch_size must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Media.MaxFileSizeMB <= 0 {
		return fmt.Errorf("media.max_file_size_mb must be > 0")
	}
	if c.Media.DominantColors <= 0 {
		return fmt.Errorf("media.dominant_colors must be > 0")
	}
	return nil
}

// FetchTimeout returns the direct fetch timeout as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// ArchiveTimeout returns the availability-lookup timeout as a duration.
func (c Config) ArchiveTimeout() time.Duration {
	return time.Duration(c.Fetch.ArchiveTimeoutSec) * time.Second
}

// SnapshotTimeout returns the snapshot GET timeout as a duration.
func (c Config) SnapshotTimeout() time.Duration {
	return time.Duration(c.Fetch.SnapshotTimeoutSec) * time.Second
}

// MediaDownloadTimeout returns the media download timeout as a duration.
func (c Config) MediaDownloadTimeout() time.Duration {
	return time.Duration(c.Media.DownloadTimeoutSec) * time.Second
}

// MediaMaxBytes returns the media size ceiling in bytes.
func (c Config) MediaMaxBytes() int64 {
	return int64(c.Media.MaxFileSizeMB) << 20
}
