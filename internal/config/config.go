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
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Bulk       BulkConfig       `mapstructure:"bulk"`
	Credits    CreditsConfig    `mapstructure:"credits"`
	DB         DBConfig         `mapstructure:"db"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// EnrichmentConfig bounds each website fetch.
type EnrichmentConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxBodyBytes   int64  `mapstructure:"max_body_bytes"`
}

// BulkConfig governs list enrichment jobs.
type BulkConfig struct {
	QueueDepth          int     `mapstructure:"queue_depth"`
	Workers             int     `mapstructure:"workers"`
	PerJobConcurrency   int     `mapstructure:"per_job_concurrency"`
	RateLimitRPS        float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst      int     `mapstructure:"rate_limit_burst"`
	RateLimitMaxDomains int     `mapstructure:"rate_limit_max_domains"`
}

// CreditsConfig sets the price of a successful enrichment.
type CreditsConfig struct {
	CostPerEnrichment int `mapstructure:"cost_per_enrichment"`
}

// DBConfig controls access to the hosted Postgres database. An empty DSN selects
// the in-memory store.
type DBConfig struct {
	DSN                    string `mapstructure:"dsn"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeMinutes int    `mapstructure:"max_conn_lifetime_minutes"`
	LeadsTable             string `mapstructure:"leads_table"`
	ProfilesTable          string `mapstructure:"profiles_table"`
}

// PubSubConfig holds metadata for lead enrichment notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LEADHUNTER")
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
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("enrichment.user_agent", "LeadHunter/1.0 (+https://leadhunter.app)")
	v.SetDefault("enrichment.timeout_seconds", 10)
	v.SetDefault("enrichment.max_body_bytes", 1<<20)
	v.SetDefault("bulk.queue_depth", 64)
	v.SetDefault("bulk.workers", 2)
	v.SetDefault("bulk.per_job_concurrency", 4)
	v.SetDefault("bulk.rate_limit_rps", 1.0)
	v.SetDefault("bulk.rate_limit_burst", 1)
	v.SetDefault("bulk.rate_limit_max_domains", 10000)
	v.SetDefault("credits.cost_per_enrichment", 1)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.max_conn_lifetime_minutes", 30)
	v.SetDefault("db.leads_table", "leads")
	v.SetDefault("db.profiles_table", "profiles")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Enrichment.TimeoutSeconds <= 0 {
		return fmt.Errorf("enrichment.timeout_seconds must be > 0")
	}
	if c.Enrichment.MaxBodyBytes <= 0 {
		return fmt.Errorf("enrichment.max_body_bytes must be > 0")
	}
	if c.Enrichment.UserAgent == "" {
		return fmt.Errorf("enrichment.user_agent must be set")
	}
	if c.Bulk.Workers <= 0 {
		return fmt.Errorf("bulk.workers must be > 0")
	}
	if c.Bulk.PerJobConcurrency <= 0 {
		return fmt.Errorf("bulk.per_job_concurrency must be > 0")
	}
	if c.Bulk.QueueDepth <= 0 {
		return fmt.Errorf("bulk.queue_depth must be > 0")
	}
	if c.Bulk.RateLimitMaxDomains < 0 {
		return fmt.Errorf("bulk.rate_limit_max_domains must be >= 0")
	}
	if c.Credits.CostPerEnrichment <= 0 {
		return fmt.Errorf("credits.cost_per_enrichment must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// FetchTimeout converts the enrichment timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Enrichment.TimeoutSeconds) * time.Second
}

// RequestTimeout returns the per-request HTTP handler budget.
func (c Config) RequestTimeout() time.Duration {
	if c.Server.RequestTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ConnLifetime returns the maximum lifetime of a pooled database connection.
func (c Config) ConnLifetime() time.Duration {
	return time.Duration(c.DB.MaxConnLifetimeMinutes) * time.Minute
}
