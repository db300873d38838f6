package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name          string
		err           *StandardError
		wantCode      string
		wantRetries   int
		wantRetryable bool
	}{
		{
			name:        "invalid filter format is terminal",
			err:         NewInvalidFilterFormatError("salaryMin > salaryMax"),
			wantCode:    "INVALID_FILTER_FORMAT",
			wantRetries: 0,
		},
		{
			name:          "search timeout retries twice",
			err:           NewSearchTimeoutError("jobs"),
			wantCode:      "SEARCH_TIMEOUT",
			wantRetries:   2,
			wantRetryable: true,
		},
		{
			name:          "notification failure retries three times",
			err:           NewNotificationSendFailedError("email", fmt.Errorf("throttled")),
			wantCode:      "NOTIFICATION_SEND_FAILED",
			wantRetries:   3,
			wantRetryable: true,
		},
		{
			name:        "unmapped code falls back to its own name",
			err:         &StandardError{Code: "SOMETHING_NEW", Message: "x"},
			wantCode:    "SOMETHING_NEW",
			wantRetries: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)
			assert.Equal(t, tt.wantRetryable, bpmn.Retryable)
			assert.Equal(t, string(tt.err.Code), bpmn.ErrorVariables["originalErrorCode"])
		})
	}
}

func TestToErrorVariables_MergesExtraVariables(t *testing.T) {
	bpmn := ConvertToBPMNError(NewIndexNotFoundError("jobs"))
	vars := bpmn.ToErrorVariables()

	assert.Equal(t, "INDEX_NOT_FOUND", vars["errorCode"])
	assert.Equal(t, "index: jobs", vars["errorDetails"])
	assert.Equal(t, false, vars["retryable"])
	assert.Equal(t, "INDEX_NOT_FOUND", vars["originalErrorCode"])
	assert.NotEmpty(t, vars["timestamp"])
}

func TestNormalize(t *testing.T) {
	t.Run("wrapped standard error is unwrapped", func(t *testing.T) {
		inner := NewInvalidInputError("jobs is required")
		got := Normalize(fmt.Errorf("execute: %w", inner))
		assert.Same(t, inner, got)
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		got := Normalize(stderrors.New("nil pointer"))
		require.NotNil(t, got)
		assert.Equal(t, ErrCodeInternal, got.Code)
		assert.Equal(t, "nil pointer", got.Details)
		assert.False(t, got.Retryable)
	})
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "STORAGE", GetErrorCategory(ErrCodeFilterStateSaveFailed))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeIndexNotFound))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeSearchTimeout))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeNotificationSendFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidFilterFormat))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeSearchQueryFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeInvalidInput))
}

func TestStandardError_Error(t *testing.T) {
	err := NewFilterStateLoadFailedError("@iopps_job_filters:u1", stderrors.New("EOF"))
	assert.Equal(t, "StandardError[FILTER_STATE_LOAD_FAILED]: Saved job filters could not be loaded", err.Error())
	assert.Contains(t, err.Details, "@iopps_job_filters:u1")
}

func TestNewVariablesDecodeError(t *testing.T) {
	err := NewVariablesDecodeError(stderrors.New("unexpected end of JSON input"))

	require.NotNil(t, err)
	assert.Equal(t, ErrCodeInvalidInput, err.Code)
	assert.False(t, err.Retryable)
	assert.Contains(t, err.Details, "parse input: unexpected end of JSON input")
	assert.Equal(t, "INVALID_INPUT", ConvertToBPMNError(err).Code)
}
