// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Storage backends for persisted filter state.
const (
	StorageBackendRedis    = "redis"
	StorageBackendPostgres = "postgres"
	StorageBackendMemory   = "memory"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Filters  FiltersConfig           `mapstructure:"filters"`
	Search   SearchConfig            `mapstructure:"search"`
	Alerts   AlertsConfig            `mapstructure:"alerts"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Metrics  MetricsConfig           `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // single address shorthand
}

// GetURL returns the URL field or the first address.
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// TimeoutDuration converts the millisecond timeout.
func (w WorkerConfig) TimeoutDuration() time.Duration {
	return time.Duration(w.Timeout) * time.Millisecond
}

// --- Domain Configuration Sections ---

// FiltersConfig controls where saved job filters live.
type FiltersConfig struct {
	StorageBackend string        `mapstructure:"storage_backend"`
	KeyPrefix      string        `mapstructure:"key_prefix"`
	StateTTL       time.Duration `mapstructure:"state_ttl"` // 0 keeps saved filters forever
	PersistTimeout time.Duration `mapstructure:"persist_timeout"`
}

// SearchConfig holds settings for the search-jobs worker.
type SearchConfig struct {
	Index      string `mapstructure:"index"`
	MaxResults int    `mapstructure:"max_results"`
}

// AlertsConfig holds settings for the send-job-alert worker.
type AlertsConfig struct {
	Region     string `mapstructure:"region"`
	FromEmail  string `mapstructure:"from_email"`
	SMSEnabled bool   `mapstructure:"sms_enabled"`
	SenderID   string `mapstructure:"sender_id"`
	MaxJobs    int    `mapstructure:"max_jobs"`
	SiteURL    string `mapstructure:"site_url"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds the HTTP address serving /metrics and /health.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}
