// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"iopps-workers/internal/common/aws"
	"iopps-workers/internal/common/camunda"
	"iopps-workers/internal/common/config"
	"iopps-workers/internal/common/database"
	"iopps-workers/internal/common/logger"
	"iopps-workers/internal/common/observability"
	"iopps-workers/internal/filters/store"

	fj "iopps-workers/internal/workers/jobs/filter-jobs"
	pjf "iopps-workers/internal/workers/jobs/parse-job-filters"
	sjf "iopps-workers/internal/workers/jobs/save-job-filters"
	sja "iopps-workers/internal/workers/jobs/send-job-alert"
	sj "iopps-workers/internal/workers/jobs/search-jobs"
)

var dependencyRetry = camunda.RetryConfig{
	MaxRetries: 15,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

type healthCheck func(ctx context.Context) error

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("starting worker manager", map[string]interface{}{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		log.Warn("opentelemetry meter unavailable", map[string]interface{}{"error": err.Error()})
	}
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]healthCheck{}

	// --- Zeebe ---
	zeebe, err := camunda.Connect(ctx, camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      time.Duration(cfg.Camunda.RequestTimeout) * time.Millisecond,
	}, log)
	if err != nil {
		zapLog.Fatal("zeebe connection failed", zap.Error(err))
	}
	defer zeebe.Close()
	checks["zeebe"] = zeebe.HealthCheck
	log.Info("Zeebe client connected", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})

	// --- Saved filter storage ---
	storage, closeStorage, err := openFilterStorage(ctx, cfg, log, checks)
	if err != nil {
		zapLog.Fatal("filter storage unavailable", zap.Error(err))
	}
	defer closeStorage()
	stores := store.NewFactory(storage, cfg.Filters.KeyPrefix, cfg.Filters.PersistTimeout, log)

	registry := camunda.NewRegistry(zeebe, obs, log)

	// --- Filter workers ---
	if wcfg := config.GetWorkerConfig(cfg, pjf.TaskType); wcfg.Enabled {
		handler := pjf.NewHandler(&pjf.Config{Timeout: wcfg.TimeoutDuration()}, log)
		registry.Start(pjf.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, fj.TaskType); wcfg.Enabled {
		handler := fj.NewHandler(&fj.Config{Timeout: wcfg.TimeoutDuration()}, stores, log)
		registry.Start(fj.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, sjf.TaskType); wcfg.Enabled {
		handler := sjf.NewHandler(&sjf.Config{Timeout: wcfg.TimeoutDuration()}, stores, log)
		registry.Start(sjf.TaskType, wcfg, handler.Handle)
	}

	// --- Search ---
	if wcfg := config.GetWorkerConfig(cfg, sj.TaskType); wcfg.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Fatal("elasticsearch client failed", zap.Error(err))
		}
		if err := camunda.Retry(ctx, dependencyRetry, log, "Elasticsearch connection", es.Ping); err != nil {
			zapLog.Fatal("elasticsearch unreachable", zap.Error(err))
		}
		checks["elasticsearch"] = es.Ping

		handler := sj.NewHandler(&sj.Config{
			Timeout:    wcfg.TimeoutDuration(),
			Index:      cfg.Search.Index,
			MaxResults: cfg.Search.MaxResults,
		}, es.Client, stores, log)
		registry.Start(sj.TaskType, wcfg, handler.Handle)
	}

	// --- Alerts ---
	if wcfg := config.GetWorkerConfig(cfg, sja.TaskType); wcfg.Enabled {
		awsCfg, err := aws.LoadConfig(ctx, cfg.Alerts.Region)
		if err != nil {
			zapLog.Fatal("aws config load failed", zap.Error(err))
		}

		alertCfg := sja.LoadConfig()
		alertCfg.Timeout = wcfg.TimeoutDuration()
		alertCfg.MaxJobs = cfg.Alerts.MaxJobs
		alertCfg.SMSEnabled = cfg.Alerts.SMSEnabled
		if cfg.Alerts.SiteURL != "" {
			alertCfg.SiteURL = cfg.Alerts.SiteURL
		}

		handler := sja.NewHandler(alertCfg, stores,
			aws.NewEmailSender(awsCfg, cfg.Alerts.FromEmail),
			aws.NewSMSSender(awsCfg, cfg.Alerts.SenderID),
			log)
		registry.Start(sja.TaskType, wcfg, handler.Handle)
	}

	log.Info("workers registered", map[string]interface{}{"taskTypes": registry.TaskTypes()})

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler(checks))
	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("health/metrics server listening", map[string]interface{}{"addr": cfg.Metrics.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("health/metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("shutdown signal received, stopping workers", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	registry.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("health/metrics server shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	log.Info("worker manager stopped gracefully", nil)
}

// openFilterStorage connects the configured backend for saved job filters.
func openFilterStorage(ctx context.Context, cfg *config.Config, log logger.Logger, checks map[string]healthCheck) (store.Storage, func(), error) {
	switch cfg.Filters.StorageBackend {
	case config.StorageBackendRedis:
		rdb := database.NewRedis(cfg.Database.Redis)
		if err := camunda.Retry(ctx, dependencyRetry, log, "Redis connection", rdb.Ping); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		checks["redis"] = rdb.Ping
		log.Info("filter state stored in redis", map[string]interface{}{"address": cfg.Database.Redis.Address})
		return store.NewRedisStorage(rdb.Client, cfg.Filters.StateTTL), func() { _ = rdb.Close() }, nil

	case config.StorageBackendPostgres:
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if err := camunda.Retry(ctx, dependencyRetry, log, "PostgreSQL connection", pg.Ping); err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
		checks["postgres"] = pg.Ping
		log.Info("filter state stored in postgres", map[string]interface{}{"host": cfg.Database.Postgres.Host})
		return store.NewPostgresStorage(pg.DB), func() { _ = pg.Close() }, nil

	case config.StorageBackendMemory:
		log.Warn("filter state kept in memory, it is lost on restart", nil)
		return store.NewMemoryStorage(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown filter storage backend %q", cfg.Filters.StorageBackend)
	}
}

func healthHandler(checks map[string]healthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		body := map[string]interface{}{
			"status":       "healthy",
			"time":         time.Now().Format(time.RFC3339),
			"dependencies": deps,
		}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
