// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iopps-workers/internal/common/camunda"
	"iopps-workers/internal/common/config"
	"iopps-workers/internal/common/database"
	"iopps-workers/internal/common/logger"
	"iopps-workers/internal/filters/store"
	"iopps-workers/internal/models"

	filterjobs "iopps-workers/internal/workers/jobs/filter-jobs"
	parsejobfilters "iopps-workers/internal/workers/jobs/parse-job-filters"
	savejobfilters "iopps-workers/internal/workers/jobs/save-job-filters"
	searchjobs "iopps-workers/internal/workers/jobs/search-jobs"
)

// The suite talks to the services from docker compose and only runs with E2E=1.
func requireE2E(t *testing.T) *config.Config {
	t.Helper()
	if os.Getenv("E2E") != "1" {
		t.Skip("set E2E=1 to run against live Zeebe, Redis, PostgreSQL and Elasticsearch")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"
	cfg.Database.Elasticsearch.Addresses = []string{"http://localhost:9200"}
	return cfg
}

func TestServicesConnectivity(t *testing.T) {
	cfg := requireE2E(t)
	ctx := context.Background()
	log := logger.NewTestLogger(t)

	zeebe, err := camunda.Connect(ctx, camunda.ClientConfig{
		GatewayAddress:         "localhost:26500",
		UsePlaintextConnection: true,
		Retry:                  camunda.RetryConfig{MaxRetries: 3, BaseDelay: time.Second},
	}, log)
	require.NoError(t, err, "Zeebe topology request failed")
	defer zeebe.Close()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	defer pg.Close()
	assert.NoError(t, pg.Ping(ctx), "PostgreSQL ping failed")
	assert.NoError(t, pg.EnsureSchema(ctx))

	rdb := database.NewRedis(cfg.Database.Redis)
	defer rdb.Close()
	assert.NoError(t, rdb.Ping(ctx), "Redis ping failed")

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	require.NoError(t, err)
	assert.NoError(t, es.Ping(ctx), "Elasticsearch ping failed")
}

func TestFilterLifecycle(t *testing.T) {
	cfg := requireE2E(t)
	ctx := context.Background()
	log := logger.NewTestLogger(t)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	defer pg.Close()
	require.NoError(t, pg.EnsureSchema(ctx))

	rdb := database.NewRedis(cfg.Database.Redis)
	defer rdb.Close()

	backends := map[string]store.Storage{
		"redis":    store.NewRedisStorage(rdb.Client, time.Hour),
		"postgres": store.NewPostgresStorage(pg.DB),
	}

	for name, storage := range backends {
		t.Run(name, func(t *testing.T) {
			stores := store.NewFactory(storage, "@iopps_job_filters_e2e", time.Second, log)
			userID := uuid.NewString()

			parsed, err := parsejobfilters.NewHandler(parsejobfilters.LoadConfig(), log).
				Execute(ctx, &parsejobfilters.Input{RawFilters: map[string]interface{}{
					"remoteWork": "remote",
					"salaryMin":  "$60,000",
				}})
			require.NoError(t, err)
			assert.Equal(t, 2, parsed.ActiveFilterCount)

			saver := savejobfilters.NewHandler(savejobfilters.LoadConfig(), stores, log)
			_, err = saver.Execute(ctx, &savejobfilters.Input{
				UserID:  userID,
				Action:  savejobfilters.ActionApply,
				Filters: &parsed.Filters,
			})
			require.NoError(t, err)

			reopened := stores.Open(ctx, userID).Filters()
			assert.Equal(t, []models.RemoteWorkOption{models.RemoteWorkRemote}, reopened.RemoteWork)

			out, err := filterjobs.NewHandler(filterjobs.LoadConfig(), stores, log).
				Execute(ctx, &filterjobs.Input{UserID: userID, Jobs: []models.JobRecord{
					{ID: "a", Location: "Remote", SalaryRange: "$70,000 - $90,000"},
					{ID: "b", Location: "Saskatoon, SK", SalaryRange: "$70,000"},
					{ID: "c", Location: "Remote", SalaryRange: "$40,000"},
				}})
			require.NoError(t, err)
			require.Len(t, out.Jobs, 1)
			assert.Equal(t, "a", out.Jobs[0].ID)

			_, err = saver.Execute(ctx, &savejobfilters.Input{UserID: userID, Action: savejobfilters.ActionClear})
			require.NoError(t, err)
			assert.Equal(t, 0, stores.Open(ctx, userID).ActiveFilterCount())
		})
	}
}

func TestSearchJobs(t *testing.T) {
	cfg := requireE2E(t)
	ctx := context.Background()
	log := logger.NewTestLogger(t)

	esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	require.NoError(t, err)
	index := "jobs-e2e-" + strings.ToLower(uuid.NewString()[:8])
	seedIndex(t, esClient.Client, index)
	defer func() {
		res, err := esClient.Client.Indices.Delete([]string{index})
		if err == nil {
			res.Body.Close()
		}
	}()

	stores := store.NewFactory(store.NewMemoryStorage(), "", time.Second, log)
	handler := searchjobs.NewHandler(searchjobs.LoadConfig(), esClient.Client, stores, log)

	out, err := handler.Execute(ctx, &searchjobs.Input{
		Index: index,
		Filters: &models.FilterState{
			IndigenousOwnedOnly: true,
			RemoteWork:          []models.RemoteWorkOption{models.RemoteWorkRemote},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.TotalHits)
	require.Len(t, out.Jobs, 1)
	assert.Equal(t, "remote-owned", out.Jobs[0].ID)

	_, err = handler.Execute(ctx, &searchjobs.Input{Index: index + "-missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, searchjobs.ErrIndexNotFound)
}

func seedIndex(t *testing.T, es *elasticsearch.Client, index string) {
	t.Helper()
	now := time.Now().UTC().Format(time.RFC3339)
	docs := map[string]map[string]interface{}{
		"remote-owned": {"title": "Data Analyst", "location": "Remote", "indigenousOwned": true, "createdAt": now},
		"onsite-owned": {"title": "Band Administrator", "location": "Thunder Bay, ON", "indigenousOwned": true, "createdAt": now},
		"remote-other": {"title": "Developer", "location": "Remote", "indigenousOwned": false, "createdAt": now},
	}

	var body bytes.Buffer
	for id, doc := range docs {
		fmt.Fprintf(&body, `{"index":{"_index":%q,"_id":%q}}`+"\n", index, id)
		line, err := json.Marshal(doc)
		require.NoError(t, err)
		body.Write(line)
		body.WriteByte('\n')
	}

	res, err := es.Bulk(&body, es.Bulk.WithRefresh("true"))
	require.NoError(t, err)
	defer res.Body.Close()
	require.False(t, res.IsError(), res.String())
}

func benchmarkJobs(n int) []models.JobRecord {
	jobs := make([]models.JobRecord, 0, n)
	for i := 0; i < n; i++ {
		jobs = append(jobs, models.JobRecord{
			ID:          fmt.Sprintf("job-%d", i),
			Title:       []string{"Senior Engineer", "Junior Analyst", "Director of Finance"}[i%3],
			Location:    []string{"Remote", "Hybrid - Regina", "Winnipeg, MB"}[i%3],
			SalaryRange: fmt.Sprintf("$%d,000 - $%d,000", 40+i%60, 60+i%60),
			Category:    []string{"Technology", "Healthcare", "Finance"}[i%3],
			CreatedAt:   models.At(time.Now().Add(-time.Duration(i%200) * time.Hour)),
		})
	}
	return jobs
}

func BenchmarkHandler_FilterJobs(b *testing.B) {
	log := logger.NewNoOpLogger()
	stores := store.NewFactory(store.NewMemoryStorage(), "", time.Second, log)
	handler := filterjobs.NewHandler(filterjobs.LoadConfig(), stores, log)
	input := &filterjobs.Input{
		Filters: &models.FilterState{
			SalaryMin:  models.IntPtr(50000),
			RemoteWork: []models.RemoteWorkOption{models.RemoteWorkRemote, models.RemoteWorkHybrid},
			PostedDate: models.PostedLast7Days,
			Industries: []string{"Technology", "Finance"},
		},
		Jobs: benchmarkJobs(1000),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = handler.Execute(context.Background(), input)
	}
}

func BenchmarkHandler_ParseJobFilters(b *testing.B) {
	handler := parsejobfilters.NewHandler(parsejobfilters.LoadConfig(), logger.NewNoOpLogger())
	input := &parsejobfilters.Input{RawFilters: map[string]interface{}{
		"remoteWork":      []interface{}{"remote", "hybrid"},
		"jobTypes":        "full-time,contract",
		"salaryMin":       "$50,000",
		"salaryMax":       120000,
		"postedDate":      "7days",
		"industries":      []interface{}{"technology", "Healthcare"},
		"indigenousOwnedOnly": "true",
	}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = handler.Execute(context.Background(), input)
	}
}
