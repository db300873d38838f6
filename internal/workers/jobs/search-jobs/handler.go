package searchjobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	commonerrors "iopps-workers/internal/common/errors"
	"iopps-workers/internal/common/logger"
	"iopps-workers/internal/common/metrics"
	"iopps-workers/internal/filters"
	"iopps-workers/internal/filters/store"
	"iopps-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const TaskType = "search-jobs"

var (
	ErrSearchQueryFailed   = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout       = errors.New("SEARCH_TIMEOUT")
	ErrIndexNotFound       = errors.New("INDEX_NOT_FOUND")
	ErrInvalidFilterFormat = errors.New("INVALID_FILTER_FORMAT")
)

type Handler struct {
	config       *Config
	client       *elasticsearch.Client
	stores       *store.Factory
	logger       logger.Logger
	errorHandler *commonerrors.ErrorHandler
}

func NewHandler(config *Config, client *elasticsearch.Client, stores *store.Factory, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		client:       client,
		stores:       stores,
		logger:       log,
		errorHandler: commonerrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job,
			commonerrors.NewVariablesDecodeError(err))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, h.toStandardError(err, h.indexFor(&input)))
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	state, err := h.resolveFilters(ctx, input)
	if err != nil {
		return nil, err
	}

	index := h.indexFor(input)
	size := h.sizeFor(input)

	req, err := buildSearchRequest(index, size, state)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}

	res, err := req.Do(ctx, h.client)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrSearchTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, classifyErrorResponse(res)
	}

	var body searchResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchQueryFailed, err)
	}

	jobs := make([]models.JobRecord, 0, len(body.Hits.Hits))
	for _, hit := range body.Hits.Hits {
		var job models.JobRecord
		if err := json.Unmarshal(hit.Source, &job); err != nil {
			h.logger.Warn("skipping undecodable job document", map[string]interface{}{
				"documentId": hit.ID,
				"error":      err,
			})
			continue
		}
		if job.ID == "" {
			job.ID = hit.ID
		}
		jobs = append(jobs, job)
	}

	matched := filters.Evaluate(jobs, state)
	metrics.ObserveFilterPass(TaskType, len(jobs), len(matched))

	h.logger.Info("job search completed", map[string]interface{}{
		"index":        index,
		"totalHits":    body.Hits.Total.Value,
		"fetched":      len(jobs),
		"matchedCount": len(matched),
		"took":         body.Took,
	})

	return &Output{
		Jobs:         matched,
		TotalHits:    body.Hits.Total.Value,
		MatchedCount: len(matched),
		Took:         body.Took,
	}, nil
}

func (h *Handler) resolveFilters(ctx context.Context, input *Input) (models.FilterState, error) {
	if input.Filters != nil {
		state := input.Filters.Clone()
		if err := state.Validate(); err != nil {
			return state, fmt.Errorf("%w: %v", ErrInvalidFilterFormat, err)
		}
		return state, nil
	}
	if input.UserID == "" {
		return models.DefaultFilterState(), nil
	}
	return h.stores.Open(ctx, input.UserID).Filters(), nil
}

func (h *Handler) indexFor(input *Input) string {
	if input.Index != "" {
		return input.Index
	}
	return h.config.Index
}

func (h *Handler) sizeFor(input *Input) int {
	size := input.Size
	if size < 1 {
		size = h.config.MaxResults
	}
	if size < 1 || size > maxSearchSize {
		size = maxSearchSize
	}
	return size
}

// buildSearchRequest fetches the newest postings. Only the ownership facet maps exactly onto a
// stored field, so it is the one pushed into the query; the rest run in filters.Evaluate.
func buildSearchRequest(index string, size int, state models.FilterState) (*esapi.SearchRequest, error) {
	query := map[string]interface{}{"match_all": map[string]interface{}{}}
	if state.IndigenousOwnedOnly {
		query = map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"indigenousOwned": true}},
				},
			},
		}
	}

	body, err := json.Marshal(map[string]interface{}{
		"query": query,
		"sort": []interface{}{
			map[string]interface{}{
				"createdAt": map[string]interface{}{"order": "desc", "unmapped_type": "date"},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return &esapi.SearchRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}, nil
}

func classifyErrorResponse(res *esapi.Response) error {
	var body errorResponse
	_ = json.NewDecoder(res.Body).Decode(&body)

	if res.StatusCode == 404 && body.Error.Type == "index_not_found_exception" {
		return fmt.Errorf("%w: %s", ErrIndexNotFound, body.Error.Reason)
	}
	if res.StatusCode == 408 || res.StatusCode == 504 {
		return ErrSearchTimeout
	}
	return fmt.Errorf("%w: %s %s", ErrSearchQueryFailed, res.Status(), body.Error.Reason)
}

func (h *Handler) toStandardError(err error, index string) *commonerrors.StandardError {
	switch {
	case errors.Is(err, ErrIndexNotFound):
		return commonerrors.NewIndexNotFoundError(index)
	case errors.Is(err, ErrSearchTimeout):
		return commonerrors.NewSearchTimeoutError(index)
	case errors.Is(err, ErrSearchQueryFailed):
		return commonerrors.NewSearchQueryFailedError(index, err)
	case errors.Is(err, ErrInvalidFilterFormat):
		return commonerrors.NewInvalidFilterFormatError(err.Error())
	default:
		return commonerrors.Normalize(err)
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
