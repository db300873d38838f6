package parsejobfilters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	commonerrors "iopps-workers/internal/common/errors"
	"iopps-workers/internal/common/logger"
	"iopps-workers/internal/filters"
	"iopps-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "parse-job-filters"

var (
	ErrInvalidFilterFormat = errors.New("INVALID_FILTER_FORMAT")
)

var nonDigits = regexp.MustCompile(`[^\d]+`)

type Handler struct {
	config       *Config
	logger       logger.Logger
	errorHandler *commonerrors.ErrorHandler
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
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
		h.errorHandler.HandleJobError(ctx, client, job, commonerrors.NewInvalidFilterFormatError(err.Error()))
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	raw := input.RawFilters
	if raw == nil {
		raw = map[string]interface{}{}
	}

	state := models.DefaultFilterState()

	for _, field := range []struct {
		key    string
		target **int
	}{
		{"salaryMin", &state.SalaryMin},
		{"salaryMax", &state.SalaryMax},
	} {
		v, ok := raw[field.key]
		if !ok || v == nil {
			continue
		}
		n, err := parseSalary(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFilterFormat, field.key, err)
		}
		*field.target = &n
	}

	for _, v := range parseStringArray(raw["remoteWork"]) {
		opt := models.RemoteWorkOption(strings.ToLower(v))
		if !opt.Valid() {
			return nil, fmt.Errorf("%w: invalid remoteWork '%s'", ErrInvalidFilterFormat, v)
		}
		if !slices.Contains(state.RemoteWork, opt) {
			state.RemoteWork = append(state.RemoteWork, opt)
		}
	}

	for _, v := range parseStringArray(raw["jobTypes"]) {
		opt := models.JobTypeOption(strings.ToLower(v))
		if !opt.Valid() {
			return nil, fmt.Errorf("%w: invalid jobTypes '%s'", ErrInvalidFilterFormat, v)
		}
		if !slices.Contains(state.JobTypes, opt) {
			state.JobTypes = append(state.JobTypes, opt)
		}
	}

	for _, v := range parseStringArray(raw["experienceLevel"]) {
		opt := models.ExperienceLevelOption(strings.ToLower(v))
		if !opt.Valid() {
			return nil, fmt.Errorf("%w: invalid experienceLevel '%s'", ErrInvalidFilterFormat, v)
		}
		if !slices.Contains(state.ExperienceLevel, opt) {
			state.ExperienceLevel = append(state.ExperienceLevel, opt)
		}
	}

	if v, ok := raw["postedDate"]; ok && v != nil {
		s, isString := v.(string)
		if !isString {
			return nil, fmt.Errorf("%w: postedDate must be a string", ErrInvalidFilterFormat)
		}
		posted, err := models.ParsePostedDateOption(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilterFormat, err)
		}
		state.PostedDate = posted
	}

	if v, ok := raw["indigenousOwnedOnly"]; ok && v != nil {
		flag, err := parseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: indigenousOwnedOnly: %v", ErrInvalidFilterFormat, err)
		}
		state.IndigenousOwnedOnly = flag
	}

	for _, v := range parseStringArray(raw["industries"]) {
		state.Industries = append(state.Industries, canonicalIndustry(v))
	}

	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilterFormat, err)
	}

	count := filters.ActiveFilterCount(state)
	h.logger.Info("filters parsed successfully", map[string]interface{}{
		"activeFilterCount": count,
		"postedDate":        state.PostedDate,
		"industries":        state.Industries,
	})

	return &Output{Filters: state, ActiveFilterCount: count}, nil
}

// parseStringArray accepts an array or a comma-separated string. Values are trimmed and
// deduplicated; the result is never nil.
func parseStringArray(raw interface{}) []string {
	result := []string{}
	seen := make(map[string]bool)

	add := func(s string) {
		trimmed := strings.TrimSpace(s)
		if trimmed != "" && !seen[trimmed] {
			result = append(result, trimmed)
			seen[trimmed] = true
		}
	}

	switch v := raw.(type) {
	case string:
		for _, s := range strings.Split(v, ",") {
			add(s)
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case []string:
		for _, s := range v {
			add(s)
		}
	}
	return result
}

// parseSalary accepts whole numbers and currency strings such as "$50,000" or "CAD 65,000.00".
func parseSalary(raw interface{}) (int, error) {
	switch v := raw.(type) {
	case float64:
		if v < 0 {
			return 0, errors.New("negative salary not allowed")
		}
		if v != float64(int(v)) {
			return 0, errors.New("salary must be a whole number")
		}
		return int(v), nil
	case int:
		if v < 0 {
			return 0, errors.New("negative salary not allowed")
		}
		return v, nil
	case string:
		cleaned := strings.TrimSpace(v)
		if strings.HasPrefix(cleaned, "-") {
			return 0, errors.New("negative salary not allowed")
		}
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		if i := strings.Index(cleaned, "."); i >= 0 {
			cleaned = cleaned[:i]
		}
		cleaned = nonDigits.ReplaceAllString(cleaned, "")
		if cleaned == "" {
			return 0, errors.New("not a number")
		}
		return strconv.Atoi(cleaned)
	default:
		return 0, errors.New("not a number")
	}
}

func parseBool(raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	default:
		return false, fmt.Errorf("unsupported type %T", raw)
	}
}

// canonicalIndustry maps a label onto the catalogue spelling when it matches ignoring case.
func canonicalIndustry(label string) string {
	for _, known := range models.KnownIndustries() {
		if strings.EqualFold(known, label) {
			return known
		}
	}
	return label
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
