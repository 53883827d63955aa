package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{"debug level", "debug"},
		{"info level", "info"},
		{"warn level", "warn"},
		{"error level", "error"},
		{"invalid level", "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(tt.level, "text")
			if log == nil {
				t.Error("New() returned nil")
			}
		})
	}
}

func TestLoggerLevels(t *testing.T) {
	ctx := context.Background()
	log := NewWithWriter("info", "text", &bytes.Buffer{})

	// These should not panic
	log.Debug(ctx, "debug message")
	log.Info(ctx, "info message")
	log.Warn(ctx, "warn message")
	log.Error(ctx, "error message")

	log.Info(ctx, "formatted message: %s %d", "test", 123)
}

func TestShouldLog(t *testing.T) {
	tests := []struct {
		name        string
		configLevel string
		logLevel    zerolog.Level
		shouldLog   bool
	}{
		{"debug logs at debug level", "debug", zerolog.DebugLevel, true},
		{"info logs at debug level", "debug", zerolog.InfoLevel, true},
		{"debug doesn't log at info level", "info", zerolog.DebugLevel, false},
		{"info logs at info level", "info", zerolog.InfoLevel, true},
		{"error always logs", "debug", zerolog.ErrorLevel, true},
		{"unknown level defaults to info", "verbose", zerolog.DebugLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := NewWithWriter(tt.configLevel, "json", &bytes.Buffer{}).(*implLogger)
			result := log.shouldLog(tt.logLevel)
			if result != tt.shouldLog {
				t.Errorf("shouldLog() = %v, want %v", result, tt.shouldLog)
			}
		})
	}
}

func TestJSONOutputCarriesRequestIDAndFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter("debug", "json", buf).With("component", "processor")

	ctx := WithRequestID(context.Background(), "req-123")
	log.Warn(ctx, "cleanup failed for %s", "/tmp/x.wav")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "warn", out["level"])
	assert.Equal(t, "cleanup failed for /tmp/x.wav", out["message"])
	assert.Equal(t, "req-123", out["request_id"])
	assert.Equal(t, "processor", out["component"])
}

func TestRequestIDEmpty(t *testing.T) {
	assert.Equal(t, "", RequestID(context.Background()))
}

func TestNopDiscards(t *testing.T) {
	log := NewNop()
	log.Error(context.Background(), "nothing %d", 1)
	assert.NotNil(t, log.With("k", "v"))
}
