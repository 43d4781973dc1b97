package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONHandlerWritesExpectedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	WithRunContext(logger, "run-1", "deploy").Info("step ran")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-1", entry[RunIDKey])
	assert.Equal(t, "deploy", entry[WorkflowKey])
}

func TestParseLevelRecognizesTrace(t *testing.T) {
	assert.Equal(t, LevelTrace, parseLevel("trace"))
	assert.Equal(t, slog.LevelInfo, parseLevel("unknown"))
}

func TestFromEnvRespectsDebugOverride(t *testing.T) {
	t.Setenv("OATTY_DEBUG", "1")
	t.Setenv("OATTY_LOG_LEVEL", "warn")

	cfg := FromEnv()
	assert.Equal(t, "debug", cfg.Level)
	assert.True(t, cfg.AddSource)
}

func TestTraceSkippedBelowEnabledLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	Trace(logger, "should not appear")
	assert.Empty(t, buf.Bytes())
}

func TestSanitizeSecretAlwaysRedacts(t *testing.T) {
	assert.Equal(t, "[REDACTED]", SanitizeSecret("super-secret-value"))
}
