package audit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactMasksSensitiveKeysCaseInsensitive(t *testing.T) {
	in := map[string]any{
		"Authorization": "Bearer abc",
		"api_key":       "xyz",
		"Password":      "hunter2",
		"note":          "kept",
	}
	out := Redact(in)
	assert.Equal(t, "[REDACTED]", out["Authorization"])
	assert.Equal(t, "[REDACTED]", out["api_key"])
	assert.Equal(t, "[REDACTED]", out["Password"])
	assert.Equal(t, "kept", out["note"])
}

func TestRecordWritesRedactedJSONLine(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)

	err := l.Record(Event{
		Kind:    EventToolInvoke,
		Plugin:  "weather",
		Success: true,
		Fields:  map[string]any{"token": "secret-value", "city": "nyc"},
	})
	require.NoError(t, err)

	line := strings.TrimSpace(buf.String())
	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(line), &decoded))
	assert.Equal(t, "[REDACTED]", decoded.Fields["token"])
	assert.Equal(t, "nyc", decoded.Fields["city"])
	assert.False(t, decoded.Timestamp.IsZero())
}

func TestRecordSetsTimestampWhenZero(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)
	require.NoError(t, l.Record(Event{Kind: EventStart, Plugin: "p"}))

	var decoded Event
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded))
	assert.False(t, decoded.Timestamp.IsZero())
}
