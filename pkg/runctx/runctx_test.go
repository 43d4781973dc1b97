package runctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oattyio/oatty/pkg/value"
)

func TestResolveInputs(t *testing.T) {
	rc := New()
	rc.SetInput("name", value.String("widget"))

	v, ok := rc.Resolve([]string{"inputs", "name"})
	require.True(t, ok)
	s, _ := v.AsString()
	assert.Equal(t, "widget", s)
}

func TestResolveStepsNested(t *testing.T) {
	rc := New()
	rc.SetStepOutput("find", value.NewObject().Set("value", value.Array(value.String("a"), value.String("b"))))

	v, ok := rc.Resolve([]string{"steps", "find", "value", "1"})
	require.True(t, ok)
	s, _ := v.AsString()
	assert.Equal(t, "b", s)
}

func TestResolveEnv(t *testing.T) {
	rc := New()
	rc.Environment["API_HOST"] = "example.com"

	v, ok := rc.Resolve([]string{"env", "API_HOST"})
	require.True(t, ok)
	s, _ := v.AsString()
	assert.Equal(t, "example.com", s)
}

func TestResolveMissingRoot(t *testing.T) {
	rc := New()
	_, ok := rc.Resolve([]string{"bogus", "x"})
	assert.False(t, ok)
}

func TestResolveMissingStep(t *testing.T) {
	rc := New()
	_, ok := rc.Resolve([]string{"steps", "nope"})
	assert.False(t, ok)
}
