// Package config wires Viper configuration for the scraper commands.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InitConfig prepares the process-wide Viper instance: config file search
// paths, defaults, and SCRAPER_* environment binding. Called once by the root
// command before any subcommand runs. A non-empty cfgFile pins the config file
// instead of searching the default paths.
func InitConfig(cfgFile string) {
	v := viper.GetViper()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/company-vessels/")
		v.AddConfigPath("$HOME/.company-vessels")
	}

	SetDefaults(v)
	BindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			zap.L().Debug("no config file found, using defaults and environment")
		} else {
			zap.L().Warn("config file could not be read", zap.Error(err))
		}
	} else {
		zap.L().Info("loaded config file", zap.String("path", v.ConfigFileUsed()))
	}
}

// SetDefaults applies every configuration default to v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("environment", "production")

	v.SetDefault("site.base_url", "https://magicport.ai")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("browser.width", 1920)
	v.SetDefault("browser.height", 1080)
	v.SetDefault("browser.locale", "en-US")
	v.SetDefault("browser.timezone", "America/New_York")
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.settle_timeout", "15s")
	v.SetDefault("browser.settle_delay", "3s")

	v.SetDefault("fleet.page_length", 25)
	v.SetDefault("fleet.pre_delay", "3s")
	v.SetDefault("fleet.fallback_delay", "5s")
	v.SetDefault("fleet.fallback_length", 10)

	v.SetDefault("directory.page_delay", "10s")
	v.SetDefault("directory.max_pages", 0)
	v.SetDefault("directory.roles", []string{
		"registered_owner", "commercial_manager", "ism_manager",
	})
	v.SetDefault("directory.countries", []string{})

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 4)

	v.SetDefault("backup.provider", "local")
	v.SetDefault("backup.local.base_dir", "data/backups")
	v.SetDefault("backup.gcs.bucket", "")

	v.SetDefault("publisher.provider", "noop")
	v.SetDefault("publisher.gcp.project_id", "")
	v.SetDefault("publisher.gcp.topic_id", "")

	v.SetDefault("api.listen_addr", ":8081")
	v.SetDefault("api.auth.enabled", false)
	v.SetDefault("api.auth.api_key", "")

	v.SetDefault("metrics.listen_addr", "")

	v.SetDefault("ratelimit.rps", 0.5)
	v.SetDefault("ratelimit.burst", 1)
}

// BindEnv enables SCRAPER_* environment overrides on v, with dots and dashes
// in config keys mapped to underscores.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}
