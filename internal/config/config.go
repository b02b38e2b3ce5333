// Package config loads and validates service configuration via Viper.
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
	Catalogue CatalogueConfig `mapstructure:"catalogue"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	DB        DBConfig        `mapstructure:"db"`
	Snapshots SnapshotsConfig `mapstructure:"snapshots"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CatalogueConfig points the bot at the retailer's catalogue entry page.
type CatalogueConfig struct {
	URL                 string `mapstructure:"url"`
	MaxPagesPerCategory int    `mapstructure:"max_pages_per_category"`
}

// BrowserConfig governs the chromedp session driven per postcode job.
type BrowserConfig struct {
	Headless           bool   `mapstructure:"headless"`
	UserAgent          string `mapstructure:"user_agent"`
	NavTimeoutSec      int    `mapstructure:"nav_timeout_seconds"`
	PostcodeWaitSec    int    `mapstructure:"postcode_wait_seconds"`
	SuggestionWaitSec  int    `mapstructure:"suggestion_wait_seconds"`
	NextControlWaitSec int    `mapstructure:"next_control_wait_seconds"`
	CategorySettleMs   int    `mapstructure:"category_settle_ms"`
	ScrollSettleMs     int    `mapstructure:"scroll_settle_ms"`
	RenderSettleMs     int    `mapstructure:"render_settle_ms"`
}

// ScraperConfig controls the worker pool and scan pacing.
type ScraperConfig struct {
	Concurrency int     `mapstructure:"concurrency"`
	QueueDepth  int     `mapstructure:"queue_depth"`
	RPS         float64 `mapstructure:"rps"`
	Burst       int     `mapstructure:"burst"`
}

// DBConfig selects and configures the persistence backend.
type DBConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// SnapshotsConfig selects the diagnostic snapshot blob store.
type SnapshotsConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	BaseDir   string `mapstructure:"base_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for the change feed and scan summaries.
type PubSubConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ProjectID    string `mapstructure:"project_id"`
	TopicName    string `mapstructure:"topic_name"`
	Subscription string `mapstructure:"subscription"`
}

// SchedulerConfig governs the staleness re-scan loop.
type SchedulerConfig struct {
	WindowDays       int  `mapstructure:"window_days"`
	CheckIntervalMin int  `mapstructure:"check_interval_minutes"`
	Local            bool `mapstructure:"local"`
}

// ProbeConfig controls the pre-scan reachability check.
type ProbeConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOGUE")
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
	// Registered empty so the env override binds; Validate rejects the
	// empty value.
	v.SetDefault("catalogue.url", "")
	v.SetDefault("catalogue.max_pages_per_category", 50)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "catalogue-scraper/0.1")
	v.SetDefault("browser.nav_timeout_seconds", 45)
	v.SetDefault("browser.postcode_wait_seconds", 10)
	v.SetDefault("browser.suggestion_wait_seconds", 5)
	v.SetDefault("browser.next_control_wait_seconds", 3)
	v.SetDefault("browser.category_settle_ms", 1000)
	v.SetDefault("browser.scroll_settle_ms", 500)
	v.SetDefault("browser.render_settle_ms", 750)
	v.SetDefault("scraper.concurrency", 2)
	v.SetDefault("scraper.queue_depth", 64)
	v.SetDefault("scraper.rps", 0.5)
	v.SetDefault("scraper.burst", 1)
	v.SetDefault("db.provider", "memory")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("snapshots.provider", "memory")
	v.SetDefault("snapshots.gcs_bucket", "")
	v.SetDefault("snapshots.base_dir", "")
	v.SetDefault("snapshots.prefix", "snapshots")
	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("pubsub.subscription", "")
	v.SetDefault("scheduler.window_days", 7)
	v.SetDefault("scheduler.check_interval_minutes", 360)
	v.SetDefault("scheduler.local", false)
	v.SetDefault("probe.enabled", true)
	v.SetDefault("probe.timeout_seconds", 15)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. A missing
// catalogue URL is fatal: no partial processing is attempted without it.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if strings.TrimSpace(c.Catalogue.URL) == "" {
		return fmt.Errorf("catalogue.url is required")
	}
	if c.Catalogue.MaxPagesPerCategory <= 0 {
		return fmt.Errorf("catalogue.max_pages_per_category must be > 0")
	}
	if c.Scraper.Concurrency <= 0 {
		return fmt.Errorf("scraper.concurrency must be > 0")
	}
	if c.Scheduler.WindowDays <= 0 {
		return fmt.Errorf("scheduler.window_days must be > 0")
	}
	if c.Scheduler.CheckIntervalMin <= 0 {
		return fmt.Errorf("scheduler.check_interval_minutes must be > 0")
	}
	switch c.DB.Provider {
	case "memory":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.provider is postgres")
		}
	default:
		return fmt.Errorf("unknown db provider: %s", c.DB.Provider)
	}
	switch c.Snapshots.Provider {
	case "memory":
	case "local":
		if c.Snapshots.BaseDir == "" {
			return fmt.Errorf("snapshots.base_dir must be set when snapshots.provider is local")
		}
	case "gcs":
		if c.Snapshots.GCSBucket == "" {
			return fmt.Errorf("snapshots.gcs_bucket must be set when snapshots.provider is gcs")
		}
	default:
		return fmt.Errorf("unknown snapshots provider: %s", c.Snapshots.Provider)
	}
	if c.PubSub.Enabled {
		if c.PubSub.ProjectID == "" || c.PubSub.TopicName == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
		}
	}
	return nil
}

// RescanWindow returns the staleness window as a duration.
func (c Config) RescanWindow() time.Duration {
	return time.Duration(c.Scheduler.WindowDays) * 24 * time.Hour
}

// CheckInterval returns how often the scheduler re-evaluates staleness.
func (c Config) CheckInterval() time.Duration {
	return time.Duration(c.Scheduler.CheckIntervalMin) * time.Minute
}
