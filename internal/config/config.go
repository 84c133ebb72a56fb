// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Environment string          `mapstructure:"environment"`
	Site        SiteConfig      `mapstructure:"site"`
	Browser     BrowserConfig   `mapstructure:"browser"`
	Fleet       FleetConfig     `mapstructure:"fleet"`
	Directory   DirectoryConfig `mapstructure:"directory"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Backup      BackupConfig    `mapstructure:"backup"`
	Publisher   PublisherConfig `mapstructure:"publisher"`
	API         APIConfig       `mapstructure:"api"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	RateLimit   RateLimitConfig `mapstructure:"ratelimit"`
}

// SiteConfig identifies the scraped site.
type SiteConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// BrowserConfig governs the controlled browser session and its fingerprint.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless"`
	UserAgent         string        `mapstructure:"user_agent"`
	Width             int           `mapstructure:"width"`
	Height            int           `mapstructure:"height"`
	Locale            string        `mapstructure:"locale"`
	Timezone          string        `mapstructure:"timezone"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	SettleTimeout     time.Duration `mapstructure:"settle_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
}

// FleetConfig controls the fleet-endpoint replay.
type FleetConfig struct {
	PageLength     int           `mapstructure:"page_length"`
	PreDelay       time.Duration `mapstructure:"pre_delay"`
	FallbackDelay  time.Duration `mapstructure:"fallback_delay"`
	FallbackLength int           `mapstructure:"fallback_length"`
}

// DirectoryConfig controls country listing harvesting.
type DirectoryConfig struct {
	PageDelay time.Duration `mapstructure:"page_delay"`
	MaxPages  int           `mapstructure:"max_pages"`
	Roles     []string      `mapstructure:"roles"`
	Countries []string      `mapstructure:"countries"`
}

// DatabaseConfig controls access to the relational database.
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int    `mapstructure:"max_conns"`
}

// BackupConfig selects where fleet JSON backups are written.
type BackupConfig struct {
	Provider string            `mapstructure:"provider"`
	Local    LocalBackupConfig `mapstructure:"local"`
	GCS      GCSBackupConfig   `mapstructure:"gcs"`
}

// LocalBackupConfig holds filesystem blob store parameters.
type LocalBackupConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// GCSBackupConfig holds Google Cloud Storage blob store parameters.
type GCSBackupConfig struct {
	Bucket string `mapstructure:"bucket"`
}

// PublisherConfig selects the processed-company event publisher.
type PublisherConfig struct {
	Provider string             `mapstructure:"provider"`
	GCP      GCPPublisherConfig `mapstructure:"gcp"`
}

// GCPPublisherConfig holds Pub/Sub parameters.
type GCPPublisherConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// APIConfig configures the operational HTTP server.
type APIConfig struct {
	ListenAddr string        `mapstructure:"listen_addr"`
	Auth       APIAuthConfig `mapstructure:"auth"`
}

// APIAuthConfig defines API authentication toggles.
type APIAuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// MetricsConfig exposes a standalone Prometheus listener for non-API commands.
// An empty address disables the listener.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// RateLimitConfig paces outbound page operations per host.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// Load unmarshals the process-wide Viper state (seeded by pkg/config.InitConfig)
// into a validated Config.
func Load() (Config, error) {
	return FromViper(viper.GetViper())
}

// FromViper unmarshals and validates a Config from the given Viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces required values and reasonable limits. Database DSN is
// not required here; commands that need the database fail fast when building
// the application container instead.
func (c Config) Validate() error {
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url must be set")
	}
	if u, err := url.Parse(c.Site.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("site.base_url must be an absolute URL")
	}
	if c.Browser.Width <= 0 || c.Browser.Height <= 0 {
		return fmt.Errorf("browser.width and browser.height must be > 0")
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be > 0")
	}
	if c.Fleet.PageLength <= 0 {
		return fmt.Errorf("fleet.page_length must be > 0")
	}
	if c.Fleet.FallbackLength <= 0 {
		return fmt.Errorf("fleet.fallback_length must be > 0")
	}
	switch c.Backup.Provider {
	case "local", "gcs", "memory", "noop":
	default:
		return fmt.Errorf("backup.provider must be one of local, gcs, memory, noop")
	}
	if c.Backup.Provider == "gcs" && c.Backup.GCS.Bucket == "" {
		return fmt.Errorf("backup.gcs.bucket must be set when backup.provider is gcs")
	}
	switch c.Publisher.Provider {
	case "noop", "memory", "pubsub":
	default:
		return fmt.Errorf("publisher.provider must be one of noop, memory, pubsub")
	}
	if c.Publisher.Provider == "pubsub" &&
		(c.Publisher.GCP.ProjectID == "" || c.Publisher.GCP.TopicID == "") {
		return fmt.Errorf("publisher.gcp.project_id and publisher.gcp.topic_id must be set when publisher.provider is pubsub")
	}
	if c.API.Auth.Enabled && c.API.Auth.APIKey == "" {
		return fmt.Errorf("api.auth.api_key must be set when api auth is enabled")
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("ratelimit.rps must be >= 0")
	}
	return nil
}

// Development reports whether the environment selects the development logger.
func (c Config) Development() bool {
	return c.Environment == "development"
}
