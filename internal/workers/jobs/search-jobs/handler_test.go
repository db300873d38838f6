package searchjobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"iopps-workers/internal/common/logger"
	"iopps-workers/internal/filters/store"
	"iopps-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	path  string
	query string
	body  map[string]interface{}
}

func newFakeElasticsearch(t *testing.T, status int, response string, delay time.Duration) (*elasticsearch.Client, *capturedRequest) {
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &captured.body)
		}
		if delay > 0 {
			time.Sleep(delay)
		}
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{srv.URL},
		DisableRetry: true,
	})
	require.NoError(t, err)
	return client, captured
}

func createTestHandler(t *testing.T, client *elasticsearch.Client, storage store.Storage) *Handler {
	log := logger.NewTestLogger(t)
	return NewHandler(LoadConfig(), client, store.NewFactory(storage, "", time.Second, log), log)
}

func searchResponseJSON(now time.Time) string {
	return fmt.Sprintf(`{
		"took": 7,
		"hits": {
			"total": {"value": 250},
			"hits": [
				{"_id": "es-1", "_source": {"title": "Senior Engineer", "location": "Remote", "createdAt": %q, "industry": "Technology"}},
				{"_id": "es-2", "_source": {"id": "job-2", "title": "Junior Analyst", "remoteFlag": true, "createdAt": {"_seconds": %d}}},
				{"_id": "es-3", "_source": {"title": "Senior Accountant", "location": "Calgary, AB", "createdAt": %d}}
			]
		}
	}`, now.Format(time.RFC3339), now.Unix(), now.UnixMilli())
}

func TestHandler_Execute_Success(t *testing.T) {
	client, captured := newFakeElasticsearch(t, http.StatusOK, searchResponseJSON(time.Now()), 0)
	h := createTestHandler(t, client, store.NewMemoryStorage())

	output, err := h.Execute(context.Background(), &Input{
		Filters: &models.FilterState{
			RemoteWork:      []models.RemoteWorkOption{models.RemoteWorkRemote},
			ExperienceLevel: []models.ExperienceLevelOption{models.ExperienceSenior},
			PostedDate:      models.PostedLast24Hours,
		},
		Size: 500,
	})
	require.NoError(t, err)

	require.Len(t, output.Jobs, 1)
	assert.Equal(t, "es-1", output.Jobs[0].ID)
	assert.Equal(t, int64(250), output.TotalHits)
	assert.Equal(t, 1, output.MatchedCount)
	assert.Equal(t, int64(7), output.Took)

	assert.Equal(t, "/jobs/_search", captured.path)
	assert.Contains(t, captured.query, "size=100")
	assert.Contains(t, captured.body, "sort")
	assert.Equal(t, map[string]interface{}{"match_all": map[string]interface{}{}}, captured.body["query"])
}

func TestHandler_Execute_UsesSavedFiltersAndOwnershipPrefilter(t *testing.T) {
	client, captured := newFakeElasticsearch(t, http.StatusOK, `{"took":1,"hits":{"total":{"value":0},"hits":[]}}`, 0)
	storage := store.NewMemoryStorage()
	require.NoError(t, storage.Set(context.Background(), "@iopps_job_filters:u1", `{"indigenousOwnedOnly":true}`))
	h := createTestHandler(t, client, storage)

	output, err := h.Execute(context.Background(), &Input{UserID: "u1", Index: "jobs-v2"})
	require.NoError(t, err)

	assert.NotNil(t, output.Jobs)
	assert.Equal(t, "/jobs-v2/_search", captured.path)
	assert.Contains(t, captured.query, "size=50")
	query, _ := json.Marshal(captured.body["query"])
	assert.JSONEq(t, `{"bool":{"filter":[{"term":{"indigenousOwned":true}}]}}`, string(query))
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		delay    time.Duration
		timeout  time.Duration
		input    *Input
		wantErr  error
		wantCode string
	}{
		{
			name:     "index not found",
			status:   http.StatusNotFound,
			response: `{"error":{"type":"index_not_found_exception","reason":"no such index [jobs]"},"status":404}`,
			wantErr:  ErrIndexNotFound,
			wantCode: "INDEX_NOT_FOUND",
		},
		{
			name:     "bad request",
			status:   http.StatusBadRequest,
			response: `{"error":{"type":"parsing_exception","reason":"unknown query"},"status":400}`,
			wantErr:  ErrSearchQueryFailed,
			wantCode: "SEARCH_QUERY_FAILED",
		},
		{
			name:     "gateway timeout",
			status:   http.StatusGatewayTimeout,
			response: `{}`,
			wantErr:  ErrSearchTimeout,
			wantCode: "SEARCH_TIMEOUT",
		},
		{
			name:     "client deadline",
			status:   http.StatusOK,
			response: `{}`,
			delay:    300 * time.Millisecond,
			timeout:  50 * time.Millisecond,
			wantErr:  ErrSearchTimeout,
			wantCode: "SEARCH_TIMEOUT",
		},
		{
			name:     "malformed response",
			status:   http.StatusOK,
			response: `{"hits":`,
			wantErr:  ErrSearchQueryFailed,
			wantCode: "SEARCH_QUERY_FAILED",
		},
		{
			name:     "inverted salary filter",
			status:   http.StatusOK,
			response: `{}`,
			input:    &Input{Filters: &models.FilterState{SalaryMin: models.IntPtr(9), SalaryMax: models.IntPtr(1)}},
			wantErr:  ErrInvalidFilterFormat,
			wantCode: "INVALID_FILTER_FORMAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newFakeElasticsearch(t, tt.status, tt.response, tt.delay)
			h := createTestHandler(t, client, store.NewMemoryStorage())

			ctx := context.Background()
			if tt.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.timeout)
				defer cancel()
			}
			input := tt.input
			if input == nil {
				input = &Input{}
			}

			output, err := h.Execute(ctx, input)
			require.Error(t, err)
			assert.Nil(t, output)
			assert.True(t, errors.Is(err, tt.wantErr), err.Error())
			assert.Equal(t, tt.wantCode, string(h.toStandardError(err, "jobs").Code))
		})
	}
}

func TestBuildSearchRequest(t *testing.T) {
	req, err := buildSearchRequest("jobs", 20, models.DefaultFilterState())
	require.NoError(t, err)

	data, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"unmapped_type":"date"`))
	assert.Equal(t, 20, *req.Size)
	assert.Equal(t, []string{"jobs"}, req.Index)
}
