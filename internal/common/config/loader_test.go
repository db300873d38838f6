package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

const baseYAML = `
app:
  name: iopps-workers
  version: 1.2.0
camunda:
  broker_address: localhost:26500
database:
  redis:
    address: localhost:6379
filters:
  storage_backend: redis
  state_ttl: 720h
workers:
  filter-jobs:
    enabled: true
    max_jobs_active: 8
  send-job-alert:
    enabled: false
`

func TestLoadFrom_BaseConfigWithDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", baseYAML)
	t.Setenv("APP_ENVIRONMENT", "unit")

	cfg, err := LoadFrom(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, "localhost:26500", cfg.Camunda.BrokerAddress)
	assert.Equal(t, 10, cfg.Camunda.MaxJobsActive)
	assert.Equal(t, "@iopps_job_filters", cfg.Filters.KeyPrefix)
	assert.Equal(t, 720*time.Hour, cfg.Filters.StateTTL)
	assert.Equal(t, 3*time.Second, cfg.Filters.PersistTimeout)
	assert.Equal(t, "jobs", cfg.Search.Index)
	assert.Equal(t, 50, cfg.Search.MaxResults)
	assert.Equal(t, 10, cfg.Alerts.MaxJobs)
	assert.Equal(t, "json", cfg.Logging.Format)

	fj := cfg.Workers["filter-jobs"]
	assert.True(t, fj.Enabled)
	assert.Equal(t, 8, fj.MaxJobsActive)
	assert.Equal(t, 30*time.Second, fj.TimeoutDuration())
	assert.Equal(t, 3, fj.MaxRetries)

	assert.False(t, IsWorkerEnabled(cfg, "send-job-alert"))
	assert.True(t, IsWorkerEnabled(cfg, "parse-job-filters"))
}

func TestLoadFrom_EnvironmentOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", baseYAML)
	writeConfig(t, dir, "config.staging.yaml", `
filters:
  storage_backend: memory
search:
  index: jobs-staging
`)
	t.Setenv("APP_ENVIRONMENT", "staging")

	cfg, err := LoadFrom(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, StorageBackendMemory, cfg.Filters.StorageBackend)
	assert.Equal(t, "jobs-staging", cfg.Search.Index)
	assert.Equal(t, "localhost:26500", cfg.Camunda.BrokerAddress)
}

func TestLoadFrom_PlaceholderExpansion(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", baseYAML+`
alerts:
  from_email: ${IOPPS_ALERT_FROM}
`)
	t.Setenv("APP_ENVIRONMENT", "unit")
	t.Setenv("IOPPS_ALERT_FROM", "alerts@iopps.ca")

	cfg, err := LoadFrom(viper.New(), dir)
	require.NoError(t, err)
	assert.Equal(t, "alerts@iopps.ca", cfg.Alerts.FromEmail)
}

func TestLoadFrom_EnvOverridesKey(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", baseYAML)
	t.Setenv("APP_ENVIRONMENT", "unit")
	t.Setenv("FILTERS_STORAGE_BACKEND", "memory")

	cfg, err := LoadFrom(viper.New(), dir)
	require.NoError(t, err)
	assert.Equal(t, StorageBackendMemory, cfg.Filters.StorageBackend)
}

func TestLoadFrom_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "missing broker",
			yaml: `
database:
  redis:
    address: localhost:6379
`,
			wantErr: "camunda.broker_address is required",
		},
		{
			name: "unknown backend",
			yaml: `
camunda:
  broker_address: localhost:26500
filters:
  storage_backend: sqlite
`,
			wantErr: "is not one of redis, postgres, memory",
		},
		{
			name: "redis backend without address",
			yaml: `
camunda:
  broker_address: localhost:26500
`,
			wantErr: "database.redis.address is required",
		},
		{
			name: "postgres backend without host",
			yaml: `
camunda:
  broker_address: localhost:26500
filters:
  storage_backend: postgres
`,
			wantErr: "database.postgres.host and database are required",
		},
		{
			name: "search max results too large",
			yaml: `
camunda:
  broker_address: localhost:26500
filters:
  storage_backend: memory
search:
  max_results: 500
`,
			wantErr: "search.max_results must be between 1 and 100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "config.yaml", tt.yaml)
			t.Setenv("APP_ENVIRONMENT", "unit")

			_, err := LoadFrom(viper.New(), dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig_FallsBackToDefaults(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{}}
	wc := GetWorkerConfig(cfg, "search-jobs")
	assert.True(t, wc.Enabled)
	assert.Equal(t, 5, wc.MaxJobsActive)
	assert.Equal(t, 30000, wc.Timeout)
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "iopps", Password: "pw", Database: "prefs", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=iopps password=pw dbname=prefs sslmode=disable", p.GetDSN())
}
