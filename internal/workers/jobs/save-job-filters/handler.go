package savejobfilters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	commonerrors "iopps-workers/internal/common/errors"
	"iopps-workers/internal/common/logger"
	"iopps-workers/internal/filters/store"
	"iopps-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "save-job-filters"

var (
	ErrInvalidInput          = errors.New("INVALID_INPUT")
	ErrInvalidFilterFormat   = errors.New("INVALID_FILTER_FORMAT")
	ErrFilterStateLoadFailed = errors.New("FILTER_STATE_LOAD_FAILED")
	ErrFilterStateSaveFailed = errors.New("FILTER_STATE_SAVE_FAILED")
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

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job,
			commonerrors.NewVariablesDecodeError(err))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, h.toStandardError(err, input.UserID))
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.UserID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}

	s := h.stores.Open(ctx, input.UserID)

	switch input.Action {
	case ActionApply:
		if input.Filters == nil {
			return nil, fmt.Errorf("%w: filters are required for apply", ErrInvalidFilterFormat)
		}
		state := input.Filters.Clone()
		if err := state.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilterFormat, err)
		}
		s.Apply(ctx, state)

	case ActionClear:
		s.Clear(ctx)

	case ActionUpdate, ActionToggle:
		// Saving over a state that could not be read would discard the member's filters.
		if err := s.LoadErr(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFilterStateLoadFailed, err)
		}
		value := input.Value
		if input.Action == ActionToggle {
			toggled, err := toggleValue(s.Filters(), input.Field, input.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidFilterFormat, err)
			}
			value = toggled
		}
		if err := s.UpdateField(input.Field, value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilterFormat, err)
		}
		state := s.Filters()
		if err := state.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilterFormat, err)
		}
		s.Apply(ctx, state)

	default:
		return nil, fmt.Errorf("%w: unknown action '%s'", ErrInvalidFilterFormat, input.Action)
	}

	if err := s.SaveErr(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFilterStateSaveFailed, err)
	}

	h.logger.Info("filters saved", map[string]interface{}{
		"userId":            input.UserID,
		"action":            input.Action,
		"activeFilterCount": s.ActiveFilterCount(),
	})

	return &Output{
		Filters:           s.Filters(),
		ActiveFilterCount: s.ActiveFilterCount(),
	}, nil
}

// toggleValue flips item's membership in one of the set-valued facets of state.
func toggleValue(state models.FilterState, field models.FilterField, value interface{}) (interface{}, error) {
	item, ok := value.(string)
	if !ok || item == "" {
		return nil, fmt.Errorf("toggle on %s needs a non-empty string value", field)
	}
	switch field {
	case models.FieldRemoteWork:
		return models.Toggle(state.RemoteWork, models.RemoteWorkOption(item)), nil
	case models.FieldJobTypes:
		return models.Toggle(state.JobTypes, models.JobTypeOption(item)), nil
	case models.FieldExperienceLevel:
		return models.Toggle(state.ExperienceLevel, models.ExperienceLevelOption(item)), nil
	case models.FieldIndustries:
		return models.Toggle(state.Industries, item), nil
	default:
		return nil, fmt.Errorf("field %q cannot be toggled", field)
	}
}

func (h *Handler) toStandardError(err error, userID string) *commonerrors.StandardError {
	key := store.UserKey(h.stores.Prefix(), userID)
	switch {
	case errors.Is(err, ErrFilterStateLoadFailed):
		return commonerrors.NewFilterStateLoadFailedError(key, err)
	case errors.Is(err, ErrFilterStateSaveFailed):
		return commonerrors.NewFilterStateSaveFailedError(key, err)
	case errors.Is(err, ErrInvalidInput):
		return commonerrors.NewInvalidInputError(err.Error())
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
