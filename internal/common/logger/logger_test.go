package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestZapAdapter_FieldsAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"taskType": "filter-jobs"})

	log.Warn("filter state save failed", map[string]interface{}{
		"key":   "@iopps_job_filters:user-1",
		"error": errors.New("connection refused"),
	})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "filter-jobs", ctx["taskType"])
		assert.Equal(t, "@iopps_job_filters:user-1", ctx["key"])
		assert.Equal(t, "connection refused", ctx["error"])
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	}
}

func TestWithError_AttachesErrorField(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	NewZapAdapter(zap.New(core)).WithError(errors.New("boom")).Info("done", nil)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "boom", entries[0].ContextMap()["error"])
	}
}

func TestNewNoOpLogger_DoesNotPanic(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.With(map[string]interface{}{"a": 1}).Debug("ignored", map[string]interface{}{"b": 2})
	})
}
