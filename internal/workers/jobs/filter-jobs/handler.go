package filterjobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	commonerrors "iopps-workers/internal/common/errors"
	"iopps-workers/internal/common/logger"
	"iopps-workers/internal/common/metrics"
	"iopps-workers/internal/common/validation"
	"iopps-workers/internal/filters"
	"iopps-workers/internal/filters/store"
	"iopps-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "filter-jobs"

var (
	ErrInvalidInput        = errors.New("INVALID_INPUT")
	ErrInvalidFilterFormat = errors.New("INVALID_FILTER_FORMAT")
)

type Handler struct {
	config       *Config
	stores       *store.Factory
	logger       logger.Logger
	errorHandler *commonerrors.ErrorHandler
}

func NewHandler(config *Config, stores *store.Factory, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
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

	input, err := decodeInput(job.Variables)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, toStandardError(err))
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, toStandardError(err))
		return
	}

	h.completeJob(ctx, client, job, output)
}

// decodeInput checks the variables against the input schema before decoding them.
func decodeInput(variables string) (*Input, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &raw); err != nil {
		return nil, fmt.Errorf("%w: parse input: %v", ErrInvalidInput, err)
	}

	result, err := validation.ValidateInput(raw, inputSchema)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, result.Error())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilterFormat, err)
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input cannot be nil", ErrInvalidInput)
	}

	state, source, err := h.resolveFilters(ctx, input)
	if err != nil {
		return nil, err
	}

	matched := filters.Evaluate(input.Jobs, state)
	metrics.ObserveFilterPass(TaskType, len(input.Jobs), len(matched))

	count := filters.ActiveFilterCount(state)
	h.logger.Info("jobs filtered", map[string]interface{}{
		"userId":            input.UserID,
		"filterSource":      source,
		"totalCount":        len(input.Jobs),
		"matchedCount":      len(matched),
		"activeFilterCount": count,
	})

	return &Output{
		Jobs:              matched,
		TotalCount:        len(input.Jobs),
		MatchedCount:      len(matched),
		ActiveFilterCount: count,
		AppliedFilters:    state,
	}, nil
}

func (h *Handler) resolveFilters(ctx context.Context, input *Input) (state models.FilterState, source string, err error) {
	if input.Filters != nil {
		state = input.Filters.Clone()
		if err := state.Validate(); err != nil {
			return state, "", fmt.Errorf("%w: %v", ErrInvalidFilterFormat, err)
		}
		return state, "explicit", nil
	}
	return h.stores.Open(ctx, input.UserID).Filters(), "saved", nil
}

func toStandardError(err error) *commonerrors.StandardError {
	switch {
	case errors.Is(err, ErrInvalidFilterFormat):
		return commonerrors.NewInvalidFilterFormatError(err.Error())
	case errors.Is(err, ErrInvalidInput):
		return commonerrors.NewInvalidInputError(err.Error())
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
