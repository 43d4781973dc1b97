package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oattyio/oatty/pkg/runctx"
	"github.com/oattyio/oatty/pkg/runner"
	"github.com/oattyio/oatty/pkg/value"
)

type staticResolver map[string]runner.CommandSpec

func (s staticResolver) Resolve(runID string) (runner.CommandSpec, bool) {
	spec, ok := s[runID]
	return spec, ok
}

func newTestExecutor(r runner.Runner, cmds staticResolver) *Executor {
	return NewExecutor(NewStepExecutor(r, nil), cmds, nil)
}

func TestTopologyOrdersByDependencyAndPreservesAuthoringOrder(t *testing.T) {
	spec := WorkflowSpec{Steps: []StepSpec{
		{ID: "c", DependsOn: []string{"a"}},
		{ID: "b"},
		{ID: "a"},
	}}
	ordered, err := Topology(spec)
	require.NoError(t, err)

	var ids []string
	for _, s := range ordered {
		ids = append(ids, s.ID)
	}
	// "a" must precede "c"; "b" has no dependency and keeps its
	// authoring-order slot relative to steps that don't depend on it.
	aIdx, cIdx := indexOf(ids, "a"), indexOf(ids, "c")
	assert.Less(t, aIdx, cIdx)
}

func TestTopologyDetectsCycle(t *testing.T) {
	spec := WorkflowSpec{Steps: []StepSpec{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"a"}},
	}}
	_, err := Topology(spec)
	assert.Error(t, err)
}

func TestTopologyRejectsUnknownDependency(t *testing.T) {
	spec := WorkflowSpec{Steps: []StepSpec{{ID: "a", DependsOn: []string{"missing"}}}}
	_, err := Topology(spec)
	assert.Error(t, err)
}

func TestRunSkipsStepWhenDependencyFailed(t *testing.T) {
	cmds := staticResolver{
		"fail":    {ID: "fail"},
		"depends": {ID: "depends"},
	}
	r := runner.CustomRunner{Fn: func(ctx context.Context, spec runner.CommandSpec, with, body value.Value, rc *runctx.RunContext) (value.Value, error) {
		if spec.ID == "fail" {
			return value.Null, assertErr
		}
		return value.String("ok"), nil
	}}
	exec := newTestExecutor(r, cmds)

	spec := WorkflowSpec{Steps: []StepSpec{
		{ID: "a", Run: "fail"},
		{ID: "b", Run: "depends", DependsOn: []string{"a"}},
	}}
	result, err := exec.Run(context.Background(), spec, runctx.New())
	require.NoError(t, err)
	assert.Equal(t, StepFailed, result.Status)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, StepSkipped, result.Steps[1].Status)
}

func TestRunSucceedsAndWritesStepOutput(t *testing.T) {
	cmds := staticResolver{"echo": {ID: "echo"}}
	r := runner.CustomRunner{Fn: func(ctx context.Context, spec runner.CommandSpec, with, body value.Value, rc *runctx.RunContext) (value.Value, error) {
		return value.NewObject().Set("id", value.String("abc")), nil
	}}
	exec := newTestExecutor(r, cmds)

	spec := WorkflowSpec{Steps: []StepSpec{{ID: "find", Run: "echo"}}}
	rc := runctx.New()
	result, err := exec.Run(context.Background(), spec, rc)
	require.NoError(t, err)
	assert.Equal(t, StepSucceeded, result.Status)

	out, ok := rc.Steps["find"]
	require.True(t, ok)
	id, _ := out.Get("id")
	s, _ := id.AsString()
	assert.Equal(t, "abc", s)
}

func TestRunSkipsStepWhenConditionFalse(t *testing.T) {
	cmds := staticResolver{"echo": {ID: "echo"}}
	called := false
	r := runner.CustomRunner{Fn: func(ctx context.Context, spec runner.CommandSpec, with, body value.Value, rc *runctx.RunContext) (value.Value, error) {
		called = true
		return value.Null, nil
	}}
	exec := newTestExecutor(r, cmds)

	spec := WorkflowSpec{Steps: []StepSpec{{ID: "maybe", Run: "echo", If: "false"}}}
	result, err := exec.Run(context.Background(), spec, runctx.New())
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, StepSkipped, result.Steps[0].Status)
}

func indexOf(ids []string, id string) int {
	for i, s := range ids {
		if s == id {
			return i
		}
	}
	return -1
}

type sentinelError struct{}

func (sentinelError) Error() string { return "boom" }

var assertErr = sentinelError{}
