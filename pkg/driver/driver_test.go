package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oattyio/oatty/pkg/runctx"
	"github.com/oattyio/oatty/pkg/runner"
	"github.com/oattyio/oatty/pkg/value"
	"github.com/oattyio/oatty/pkg/workflow"
)

type staticResolver map[string]runner.CommandSpec

func (s staticResolver) Resolve(runID string) (runner.CommandSpec, bool) {
	spec, ok := s[runID]
	return spec, ok
}

func collectEvents(t *testing.T, d *Driver) []Event {
	t.Helper()
	var events []Event
	for ev := range d.Events() {
		events = append(events, ev)
	}
	return events
}

func TestDriverRunEmitsStartedThenCompleted(t *testing.T) {
	steps := workflow.NewStepExecutor(runner.NoopRunner{}, nil)
	cmds := staticResolver{"echo": {ID: "echo"}}
	d := New(steps, cmds, nil)

	spec := workflow.WorkflowSpec{Steps: []workflow.StepSpec{{ID: "a", Run: "echo"}}}
	go d.Run(context.Background(), spec, runctx.New())

	events := collectEvents(t, d)
	require.NotEmpty(t, events)
	assert.Equal(t, EventRunStarted, events[0].Kind)
	last := events[len(events)-1]
	assert.Equal(t, EventRunCompleted, last.Kind)
	assert.Equal(t, RunSucceeded, last.RunCompleted.Status)
}

func TestDriverStepFinishedPrecedesNextStepStarted(t *testing.T) {
	steps := workflow.NewStepExecutor(runner.NoopRunner{}, nil)
	cmds := staticResolver{"echo": {ID: "echo"}}
	d := New(steps, cmds, nil)

	spec := workflow.WorkflowSpec{Steps: []workflow.StepSpec{{ID: "a", Run: "echo"}, {ID: "b", Run: "echo"}}}
	go d.Run(context.Background(), spec, runctx.New())

	events := collectEvents(t, d)
	var order []EventKind
	for _, e := range events {
		order = append(order, e.Kind)
	}

	finishIdx := indexOfKind(order, EventStepFinished)
	secondStartedIdx := indexOfKindAfter(order, EventStepStarted, finishIdx)
	require.NotEqual(t, -1, secondStartedIdx)
	assert.Less(t, finishIdx, secondStartedIdx)
}

func TestDriverCancelStopsLoop(t *testing.T) {
	steps := workflow.NewStepExecutor(runner.CustomRunner{Fn: func(ctx context.Context, spec runner.CommandSpec, with, body value.Value, rc *runctx.RunContext) (value.Value, error) {
		return value.Null, nil
	}}, nil)
	cmds := staticResolver{"echo": {ID: "echo"}}
	d := New(steps, cmds, nil)

	spec := workflow.WorkflowSpec{Steps: []workflow.StepSpec{{ID: "a", Run: "echo"}, {ID: "b", Run: "echo"}}}

	done := make(chan []Event)
	go func() {
		go d.Run(context.Background(), spec, runctx.New())
		done <- collectEvents(t, d)
	}()
	d.Send(Cancel)

	select {
	case events := <-done:
		last := events[len(events)-1]
		assert.Equal(t, EventRunCompleted, last.Kind)
		assert.Equal(t, RunCanceled, last.RunCompleted.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not complete after cancel")
	}
}

func indexOfKind(kinds []EventKind, k EventKind) int {
	for i, kk := range kinds {
		if kk == k {
			return i
		}
	}
	return -1
}

func indexOfKindAfter(kinds []EventKind, k EventKind, after int) int {
	for i := after + 1; i < len(kinds); i++ {
		if kinds[i] == k {
			return i
		}
	}
	return -1
}
