package runstate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oattyio/oatty/pkg/history"
	"github.com/oattyio/oatty/pkg/provider"
	"github.com/oattyio/oatty/pkg/runner"
	"github.com/oattyio/oatty/pkg/value"
	"github.com/oattyio/oatty/pkg/workflow"
)

func bindingWithLiteral(inputName, argName string, v value.Value) InputBinding {
	return InputBinding{
		Definition: provider.InputDefinition{Name: inputName},
		Args:       []provider.ArgBinding{{Name: argName, Literal: &v}},
	}
}

func TestEvaluateInputProvidersResolvesLiteral(t *testing.T) {
	s := New([]InputBinding{bindingWithLiteral("region", "value", value.String("us-east-1"))})
	s.EvaluateInputProviders()

	states := s.ArgumentStates("region")
	require.Contains(t, states, "value")
	assert.Equal(t, provider.OutcomeResolved, states["value"].Outcome.Kind)
	require.Len(t, s.ProviderEvents(), 1)
	assert.Equal(t, SourceAutomatic, s.ProviderEvents()[0].Source)
}

func TestEvaluateInputProvidersSkipsLockedEntries(t *testing.T) {
	s := New([]InputBinding{bindingWithLiteral("region", "value", value.String("us-east-1"))})
	s.PersistProviderOutcome("region", "value", provider.Resolved(value.String("eu-west-1")))
	s.EvaluateInputProviders()

	states := s.ArgumentStates("region")
	v, _ := states["value"].Outcome.Value.AsString()
	assert.Equal(t, "eu-west-1", v)
	assert.True(t, states["value"].LockedByUser)

	// One manual event from PersistProviderOutcome, no automatic event
	// since the locked entry is skipped.
	events := s.ProviderEvents()
	require.Len(t, events, 1)
	assert.Equal(t, SourceManual, events[0].Source)
}

func TestEvaluateInputProvidersOnlyEmitsOnChange(t *testing.T) {
	s := New([]InputBinding{bindingWithLiteral("region", "value", value.String("us-east-1"))})
	s.EvaluateInputProviders()
	s.EvaluateInputProviders()

	assert.Len(t, s.ProviderEvents(), 1)
}

func TestApplyInputDefaultsSeedsLiteral(t *testing.T) {
	s := New([]InputBinding{{
		Definition: provider.InputDefinition{
			Name:    "region",
			Default: &provider.Default{From: provider.DefaultLiteral, Value: value.String("us-east-1")},
		},
	}})

	results := s.ApplyInputDefaults(DefaultsConfig{})
	assert.Empty(t, results)

	v, ok := s.RunContext.Inputs.Get("region")
	require.True(t, ok)
	str, _ := v.AsString()
	assert.Equal(t, "us-east-1", str)
}

func TestApplyInputDefaultsSeedsEnv(t *testing.T) {
	s := New([]InputBinding{{
		Definition: provider.InputDefinition{
			Name:    "region",
			Default: &provider.Default{From: provider.DefaultEnv},
		},
	}})
	s.RunContext.Environment["region"] = "eu-west-1"

	s.ApplyInputDefaults(DefaultsConfig{})
	v, ok := s.RunContext.Inputs.Get("region")
	require.True(t, ok)
	str, _ := v.AsString()
	assert.Equal(t, "eu-west-1", str)
}

type memHistoryStore map[history.Key]history.StoredValue

func (m memHistoryStore) Get(key history.Key) (history.StoredValue, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memHistoryStore) Put(key history.Key, v history.StoredValue) error {
	m[key] = v
	return nil
}

func TestApplyInputDefaultsDelegatesHistoryToStore(t *testing.T) {
	store := memHistoryStore{
		{ProfileID: "p1", WorkflowID: "wf1", InputName: "region"}: {Value: value.String("ap-south-1")},
	}
	s := New([]InputBinding{{
		Definition: provider.InputDefinition{
			Name:    "region",
			Default: &provider.Default{From: provider.DefaultHistory},
		},
	}})

	results := s.ApplyInputDefaults(DefaultsConfig{Store: store, ProfileID: "p1", WorkflowID: "wf1"})
	require.Len(t, results, 1)
	assert.True(t, results[0].Seeded)

	v, ok := s.RunContext.Inputs.Get("region")
	require.True(t, ok)
	str, _ := v.AsString()
	assert.Equal(t, "ap-south-1", str)
}

func TestExecuteWithRunnerRecordsStepEvents(t *testing.T) {
	s := New(nil)
	resolver := commandResolverFunc(func(runID string) (runner.CommandSpec, bool) {
		return runner.CommandSpec{ID: runID}, true
	})
	steps := workflow.NewStepExecutor(runner.NoopRunner{}, nil)
	exec := workflow.NewExecutor(steps, resolver, nil)

	spec := workflow.WorkflowSpec{ID: "wf1", Steps: []workflow.StepSpec{{ID: "s1", Run: "cmd"}}}

	result, err := s.ExecuteWithRunner(context.Background(), exec, spec)
	require.NoError(t, err)
	assert.Equal(t, workflow.StepSucceeded, result.Status)
	require.Len(t, s.StepEvents(), 1)
	assert.Equal(t, "s1", s.StepEvents()[0].Result.ID)
}

type commandResolverFunc func(runID string) (runner.CommandSpec, bool)

func (f commandResolverFunc) Resolve(runID string) (runner.CommandSpec, bool) { return f(runID) }
