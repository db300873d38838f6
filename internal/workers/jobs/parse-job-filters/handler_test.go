package parsejobfilters

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"iopps-workers/internal/common/logger"
	"iopps-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestHandler(t *testing.T) *Handler {
	return NewHandler(LoadConfig(), logger.NewTestLogger(t))
}

func createInput(rawFilters map[string]interface{}) *Input {
	return &Input{RawFilters: rawFilters}
}

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		name           string
		input          *Input
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name:  "nil filters yield defaults",
			input: createInput(nil),
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, models.DefaultFilterState(), output.Filters)
				assert.Equal(t, 0, output.ActiveFilterCount)
			},
		},
		{
			name: "full filter set",
			input: createInput(map[string]interface{}{
				"salaryMin":           float64(40000),
				"salaryMax":           "$90,000.00",
				"remoteWork":          []interface{}{"Remote", "hybrid", "remote"},
				"jobTypes":            "full-time, contract",
				"experienceLevel":     []interface{}{"senior"},
				"postedDate":          "last-7-days",
				"indigenousOwnedOnly": true,
				"industries":          []interface{}{"healthcare", "Traditional Arts"},
			}),
			validateOutput: func(t *testing.T, output *Output) {
				f := output.Filters
				require.NotNil(t, f.SalaryMin)
				require.NotNil(t, f.SalaryMax)
				assert.Equal(t, 40000, *f.SalaryMin)
				assert.Equal(t, 90000, *f.SalaryMax)
				assert.Equal(t, []models.RemoteWorkOption{models.RemoteWorkRemote, models.RemoteWorkHybrid}, f.RemoteWork)
				assert.Equal(t, []models.JobTypeOption{models.JobTypeFullTime, models.JobTypeContract}, f.JobTypes)
				assert.Equal(t, []models.ExperienceLevelOption{models.ExperienceSenior}, f.ExperienceLevel)
				assert.Equal(t, models.PostedLast7Days, f.PostedDate)
				assert.True(t, f.IndigenousOwnedOnly)
				assert.Equal(t, []string{"Healthcare", "Traditional Arts"}, f.Industries)
				assert.Equal(t, 7, output.ActiveFilterCount)
			},
		},
		{
			name: "legacy posted date and string flag",
			input: createInput(map[string]interface{}{
				"postedDate":          "24h",
				"indigenousOwnedOnly": "false",
				"salaryMin":           nil,
			}),
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, models.PostedLast24Hours, output.Filters.PostedDate)
				assert.False(t, output.Filters.IndigenousOwnedOnly)
				assert.Nil(t, output.Filters.SalaryMin)
				assert.Equal(t, 1, output.ActiveFilterCount)
			},
		},
		{
			name: "equal salary bounds are allowed",
			input: createInput(map[string]interface{}{
				"salaryMin": float64(60000),
				"salaryMax": float64(60000),
			}),
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 1, output.ActiveFilterCount)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t)
			output, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			require.NotNil(t, output)
			tt.validateOutput(t, output)
		})
	}
}

func TestHandler_Execute_InvalidFilterFormat(t *testing.T) {
	tests := []struct {
		name       string
		rawFilters map[string]interface{}
		wantMsg    string
	}{
		{name: "unknown remote option", rawFilters: map[string]interface{}{"remoteWork": []interface{}{"moon"}}, wantMsg: "remoteWork"},
		{name: "unknown job type", rawFilters: map[string]interface{}{"jobTypes": "gig"}, wantMsg: "jobTypes"},
		{name: "unknown experience", rawFilters: map[string]interface{}{"experienceLevel": []interface{}{"guru"}}, wantMsg: "experienceLevel"},
		{name: "unknown posted date", rawFilters: map[string]interface{}{"postedDate": "fortnight"}, wantMsg: "postedDate"},
		{name: "non string posted date", rawFilters: map[string]interface{}{"postedDate": float64(7)}, wantMsg: "postedDate"},
		{name: "negative salary", rawFilters: map[string]interface{}{"salaryMin": float64(-1)}, wantMsg: "negative"},
		{name: "negative salary string", rawFilters: map[string]interface{}{"salaryMax": "-5000"}, wantMsg: "negative"},
		{name: "fractional salary", rawFilters: map[string]interface{}{"salaryMin": 1.5}, wantMsg: "whole number"},
		{name: "salary not a number", rawFilters: map[string]interface{}{"salaryMin": "lots"}, wantMsg: "not a number"},
		{
			name:       "inverted salary range",
			rawFilters: map[string]interface{}{"salaryMin": float64(90000), "salaryMax": float64(50000)},
			wantMsg:    "salaryMin (90000) > salaryMax (50000)",
		},
		{name: "bad flag", rawFilters: map[string]interface{}{"indigenousOwnedOnly": "maybe"}, wantMsg: "indigenousOwnedOnly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t)
			output, err := h.Execute(context.Background(), createInput(tt.rawFilters))
			require.Error(t, err)
			assert.Nil(t, output)
			assert.True(t, errors.Is(err, ErrInvalidFilterFormat))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestOutput_SerializesAsFilterState(t *testing.T) {
	h := createTestHandler(t)
	output, err := h.Execute(context.Background(), createInput(map[string]interface{}{
		"industries": "Energy,Legal",
	}))
	require.NoError(t, err)

	data, err := json.Marshal(output)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"filters": {
			"remoteWork": [], "jobTypes": [], "experienceLevel": [],
			"postedDate": "any", "indigenousOwnedOnly": false,
			"industries": ["Energy", "Legal"]
		},
		"activeFilterCount": 1
	}`, string(data))
}

func TestParseStringArray(t *testing.T) {
	assert.Equal(t, []string{}, parseStringArray(nil))
	assert.Equal(t, []string{"a", "b"}, parseStringArray(" a, b ,a,"))
	assert.Equal(t, []string{"x"}, parseStringArray([]interface{}{"x", 3, "", "x"}))
	assert.Equal(t, []string{}, parseStringArray(42))
}
