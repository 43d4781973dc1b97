// Package runstate implements the workflow run state aggregate (spec
// §4.9): one RunContext plus the per-input provider-resolution state
// that sits in front of it, the manual locks a user has applied, and
// the telemetry those two things emit as they change.
package runstate

import (
	"context"
	"time"

	"github.com/oattyio/oatty/pkg/history"
	"github.com/oattyio/oatty/pkg/provider"
	"github.com/oattyio/oatty/pkg/runctx"
	"github.com/oattyio/oatty/pkg/value"
	"github.com/oattyio/oatty/pkg/workflow"
)

// Source names who caused a provider outcome to change.
type Source int

const (
	SourceAutomatic Source = iota
	SourceManual
)

// ArgumentState is one provider argument's current resolution and
// whether a user has manually overridden it.
type ArgumentState struct {
	Outcome      provider.Outcome
	LockedByUser bool
}

// ProviderEvent is emitted whenever evaluate_input_providers or
// persist_provider_outcome changes an argument's recorded outcome.
type ProviderEvent struct {
	InputName string
	Argument  string
	Outcome   provider.Outcome
	Source    Source
	At        time.Time
}

// StepEvent is emitted once per step result during execute_with_runner.
type StepEvent struct {
	Result workflow.StepResult
	At     time.Time
}

// InputBinding pairs an authored input definition with the argument
// bindings evaluate_input_providers resolves against the run context.
type InputBinding struct {
	Definition provider.InputDefinition
	Args       []provider.ArgBinding
}

// State owns one RunContext, the per-input argument resolution table,
// and the telemetry both emit. It is the Go realization of spec §4.9's
// Workflow run state component (C12).
type State struct {
	RunContext *runctx.RunContext

	inputs []InputBinding
	// args maps input name -> argument name -> state.
	args map[string]map[string]*ArgumentState

	providerEvents []ProviderEvent
	stepEvents     []StepEvent
}

// New returns a State seeded with the given input definitions and
// their provider argument bindings, wrapping an empty RunContext.
func New(inputs []InputBinding) *State {
	s := &State{
		RunContext: runctx.New(),
		inputs:     inputs,
		args:       make(map[string]map[string]*ArgumentState, len(inputs)),
	}
	for _, ib := range inputs {
		s.args[ib.Definition.Name] = make(map[string]*ArgumentState, len(ib.Args))
	}
	return s
}

// EvaluateInputProviders re-runs §4.4 for every input's argument
// bindings, preserving any argument a user has locked, and records one
// ProviderEvent per changed outcome.
func (s *State) EvaluateInputProviders() {
	for _, ib := range s.inputs {
		table := s.args[ib.Definition.Name]
		for _, arg := range ib.Args {
			existing, seen := table[arg.Name]
			if seen && existing.LockedByUser {
				continue
			}

			outcome := provider.ResolveArg(arg, s.RunContext)
			if seen && outcomesEqual(existing.Outcome, outcome) {
				continue
			}

			table[arg.Name] = &ArgumentState{Outcome: outcome}
			s.providerEvents = append(s.providerEvents, ProviderEvent{
				InputName: ib.Definition.Name,
				Argument:  arg.Name,
				Outcome:   outcome,
				Source:    SourceAutomatic,
				At:        time.Now(),
			})
		}
	}
}

// PersistProviderOutcome records a user-supplied outcome for
// (input, argument), locking it so subsequent EvaluateInputProviders
// calls leave it untouched, and records one manual ProviderEvent.
func (s *State) PersistProviderOutcome(inputName, argument string, outcome provider.Outcome) {
	table, ok := s.args[inputName]
	if !ok {
		table = make(map[string]*ArgumentState)
		s.args[inputName] = table
	}
	table[argument] = &ArgumentState{Outcome: outcome, LockedByUser: true}
	s.providerEvents = append(s.providerEvents, ProviderEvent{
		InputName: inputName,
		Argument:  argument,
		Outcome:   outcome,
		Source:    SourceManual,
		At:        time.Now(),
	})
}

// ArgumentStates returns the current argument resolution table for an
// input, or nil if the input is unknown.
func (s *State) ArgumentStates(inputName string) map[string]ArgumentState {
	table, ok := s.args[inputName]
	if !ok {
		return nil
	}
	out := make(map[string]ArgumentState, len(table))
	for name, st := range table {
		out[name] = *st
	}
	return out
}

// ProviderEvents returns every provider-resolution telemetry event
// recorded so far, in emission order.
func (s *State) ProviderEvents() []ProviderEvent {
	return append([]ProviderEvent(nil), s.providerEvents...)
}

// StepEvents returns every step telemetry event recorded so far, in
// emission order.
func (s *State) StepEvents() []StepEvent {
	return append([]StepEvent(nil), s.stepEvents...)
}

// DefaultsConfig supplies the pieces apply_input_defaults needs to
// seed inputs from every source named in §4.11: literal, environment,
// workflow-output, and history.
type DefaultsConfig struct {
	Store      history.Store // may be nil if history seeding is disabled
	ProfileID  string
	WorkflowID string
}

// ApplyInputDefaults seeds s.RunContext's inputs from each input
// definition's Default source (literal, environment, workflow-output,
// or history via pkg/history), per spec §4.11. History-sourced seeds
// that fail validation or look like a secret are skipped, never fatal
// (see pkg/history.ApplyDefaults); literal/env/workflow-output seeds
// apply unconditionally since they carry no comparable risk.
func (s *State) ApplyInputDefaults(cfg DefaultsConfig) []history.SeedResult {
	var historyDefs []provider.InputDefinition

	for _, ib := range s.inputs {
		def := ib.Definition
		if def.Default == nil {
			continue
		}
		switch def.Default.From {
		case provider.DefaultLiteral:
			s.RunContext.SetInput(def.Name, def.Default.Value)
		case provider.DefaultEnv:
			if v, ok := s.RunContext.Environment[envKey(def)]; ok {
				s.RunContext.SetInput(def.Name, value.String(v))
			}
		case provider.DefaultWorkflowOutput:
			if stepID, ok := def.Default.Value.AsString(); ok {
				if v, ok := s.RunContext.Steps[stepID]; ok {
					s.RunContext.SetInput(def.Name, v)
				}
			}
		case provider.DefaultHistory:
			historyDefs = append(historyDefs, def)
		}
	}

	if len(historyDefs) == 0 || cfg.Store == nil {
		return nil
	}
	return history.ApplyDefaults(cfg.Store, cfg.ProfileID, cfg.WorkflowID, historyDefs, s.RunContext)
}

// envKey names the environment variable a DefaultEnv input reads;
// the literal Default.Value (if a string) gives an explicit override
// of the input's own name.
func envKey(def provider.InputDefinition) string {
	if s, ok := def.Default.Value.AsString(); ok && s != "" {
		return s
	}
	return def.Name
}

// ExecuteWithRunner runs spec to completion via e, recording one
// StepEvent per step result (spec §4.9's execute_with_runner), and
// returns the aggregated WorkflowResult.
func (s *State) ExecuteWithRunner(ctx context.Context, e *workflow.Executor, spec workflow.WorkflowSpec) (workflow.WorkflowResult, error) {
	result, err := e.Run(ctx, spec, s.RunContext)
	for _, step := range result.Steps {
		s.stepEvents = append(s.stepEvents, StepEvent{Result: step, At: time.Now()})
	}
	return result, err
}

func outcomesEqual(a, b provider.Outcome) bool {
	if a.Kind != b.Kind || a.Reason != b.Reason || a.Required != b.Required || a.Message != b.Message {
		return false
	}
	if a.Kind == provider.OutcomeResolved {
		return a.Value.Equal(b.Value)
	}
	return true
}
