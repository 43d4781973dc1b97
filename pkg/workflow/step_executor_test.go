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

func TestStepExecutorConditionSkipPrecedesTemplateFailure(t *testing.T) {
	// Scenario S3: ctx.steps["find"] is an empty array, so
	// steps.find.value is unresolved (not false); the step must be
	// Skipped with a condition log, never Failed with a template log,
	// even though step.With also references an unresolved template.
	rc := runctx.New()
	rc.SetStepOutput("find", value.Array())

	exec := NewStepExecutor(runner.NoopRunner{}, nil)
	step := StepSpec{
		ID: "use",
		If: "steps.find.value != null",
		With: value.NewObject().Set("id", value.String("${{ steps.find.value }}")),
	}
	res := exec.Execute(context.Background(), step, runner.CommandSpec{ID: "noop"}, rc)
	require.Equal(t, StepSkipped, res.Status)
	assert.Contains(t, res.Logs[0], "unresolved condition references")
}

func TestStepExecutorSkipByFalseCondition(t *testing.T) {
	rc := runctx.New()
	exec := NewStepExecutor(runner.NoopRunner{}, nil)
	res := exec.Execute(context.Background(), StepSpec{ID: "s", If: "false"}, runner.CommandSpec{}, rc)
	assert.Equal(t, StepSkipped, res.Status)
	assert.Equal(t, uint(0), res.Attempts)
}

func TestStepExecutorTemplateFailureWhenUnconditional(t *testing.T) {
	rc := runctx.New()
	exec := NewStepExecutor(runner.NoopRunner{}, nil)
	step := StepSpec{ID: "s", With: value.NewObject().Set("id", value.String("${{ inputs.missing }}"))}
	res := exec.Execute(context.Background(), step, runner.CommandSpec{}, rc)
	assert.Equal(t, StepFailed, res.Status)
	assert.Contains(t, res.Logs[0], "unresolved template at with")
}

func TestStepExecutorRunsSuccessfully(t *testing.T) {
	rc := runctx.New()
	exec := NewStepExecutor(runner.NoopRunner{}, nil)
	res := exec.Execute(context.Background(), StepSpec{ID: "s"}, runner.CommandSpec{ID: "cmd"}, rc)
	assert.Equal(t, StepSucceeded, res.Status)
	assert.Equal(t, uint(1), res.Attempts)
}

func TestStepExecutorRepeatUntilTrue(t *testing.T) {
	rc := runctx.New()
	attempts := 0
	r := runner.CustomRunner{Fn: func(ctx context.Context, spec runner.CommandSpec, with, body value.Value, rc *runctx.RunContext) (value.Value, error) {
		attempts++
		done := attempts >= 3
		return value.NewObject().Set("done", value.Bool(done)), nil
	}}
	exec := NewStepExecutor(r, nil)
	step := StepSpec{ID: "poll", Repeat: &RepeatSpec{Every: "0s", Until: "steps.poll.done == true"}}
	res := exec.Execute(context.Background(), step, runner.CommandSpec{}, rc)
	assert.Equal(t, StepSucceeded, res.Status)
	assert.Equal(t, uint(3), res.Attempts)
}

func TestStepExecutorRepeatGuardTrips(t *testing.T) {
	rc := runctx.New()
	r := runner.CustomRunner{Fn: func(ctx context.Context, spec runner.CommandSpec, with, body value.Value, rc *runctx.RunContext) (value.Value, error) {
		return value.Bool(false), nil
	}}
	exec := NewStepExecutor(r, nil)
	step := StepSpec{ID: "poll", Repeat: &RepeatSpec{Every: "0s", Until: "steps.poll == true"}}
	res := exec.Execute(context.Background(), step, runner.CommandSpec{}, rc)
	assert.Equal(t, StepFailed, res.Status)
	assert.Equal(t, uint(repeatGuard), res.Attempts)
	assert.Contains(t, res.Logs[len(res.Logs)-1], "repeat guard tripped at 100 attempts")
}

func TestParseRepeatInterval(t *testing.T) {
	assert.Equal(t, defaultRepeatInterval, parseRepeatInterval("garbage"))
	assert.Equal(t, defaultRepeatInterval, parseRepeatInterval(""))
}
