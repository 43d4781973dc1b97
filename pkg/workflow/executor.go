package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/oattyio/oatty/pkg/errors"
	"github.com/oattyio/oatty/pkg/runctx"
	"github.com/oattyio/oatty/pkg/runner"
)

// CommandResolver maps a step's `run` identifier to the CommandSpec
// the StepExecutor dispatches through.
type CommandResolver interface {
	Resolve(runID string) (runner.CommandSpec, bool)
}

// Executor runs a WorkflowSpec to completion: topological ordering,
// per-step dependency/condition/template gating (§4.7), and run-level
// aggregation.
type Executor struct {
	Steps    *StepExecutor
	Commands CommandResolver
	Logger   *slog.Logger
}

// NewExecutor returns an Executor; a nil logger falls back to
// slog.Default().
func NewExecutor(steps *StepExecutor, commands CommandResolver, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{Steps: steps, Commands: commands, Logger: logger}
}

// Topology returns spec's steps in an order consistent with
// depends_on, preserving authoring order among steps of equal depth.
// A dependency cycle, or a depends_on referencing an unknown id, is a
// hard error.
func Topology(spec WorkflowSpec) ([]StepSpec, error) {
	byID := make(map[string]StepSpec, len(spec.Steps))
	indexOf := make(map[string]int, len(spec.Steps))
	for i, s := range spec.Steps {
		if _, dup := byID[s.ID]; dup {
			return nil, &errors.ValidationError{Field: "steps", Message: fmt.Sprintf("duplicate step id %q", s.ID)}
		}
		byID[s.ID] = s
		indexOf[s.ID] = i
	}
	for _, s := range spec.Steps {
		for _, dep := range s.DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, &errors.ValidationError{Field: "depends_on", Message: fmt.Sprintf("step %q depends on unknown step %q", s.ID, dep)}
			}
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[string]int, len(spec.Steps))
	var order []StepSpec

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visited:
			return nil
		case visiting:
			return &errors.ValidationError{Field: "depends_on", Message: fmt.Sprintf("dependency cycle detected at step %q", id)}
		}
		state[id] = visiting
		s := byID[id]
		deps := append([]string(nil), s.DependsOn...)
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = visited
		order = append(order, s)
		return nil
	}

	// The depth-first visit yields a dependency-consistent order and
	// detects cycles; the sort then groups steps by depth (longest
	// depends_on chain) and keeps authoring order within a depth.
	for _, s := range spec.Steps {
		if err := visit(s.ID); err != nil {
			return nil, err
		}
	}
	depth := make(map[string]int, len(order))
	for _, s := range order {
		for _, dep := range s.DependsOn {
			if depth[dep]+1 > depth[s.ID] {
				depth[s.ID] = depth[dep] + 1
			}
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		if depth[order[i].ID] != depth[order[j].ID] {
			return depth[order[i].ID] < depth[order[j].ID]
		}
		return indexOf[order[i].ID] < indexOf[order[j].ID]
	})
	return order, nil
}

// Run executes every step of spec in topological order against rc,
// returning the aggregated WorkflowResult.
func (e *Executor) Run(ctx context.Context, spec WorkflowSpec, rc *runctx.RunContext) (WorkflowResult, error) {
	ordered, err := Topology(spec)
	if err != nil {
		return WorkflowResult{}, err
	}

	statusByID := make(map[string]StepStatus, len(ordered))
	result := WorkflowResult{Status: StepSucceeded}

	for _, step := range ordered {
		if depResult, skip := e.gateOnDependencies(step, statusByID); skip {
			statusByID[step.ID] = depResult.Status
			result.Steps = append(result.Steps, depResult)
			result.Skipped++
			continue
		}

		cmdSpec, ok := e.Commands.Resolve(step.Run)
		if !ok {
			notFound := &errors.NotFoundError{Resource: "command", ID: step.Run}
			res := StepResult{ID: step.ID, Status: StepFailed, Logs: []string{fmt.Sprintf("step %q: %s", step.ID, notFound.Error())}}
			statusByID[step.ID] = res.Status
			result.Steps = append(result.Steps, res)
			result.Failed++
			continue
		}

		res := e.Steps.Execute(ctx, step, cmdSpec, rc)
		statusByID[step.ID] = res.Status
		result.Steps = append(result.Steps, res)

		switch res.Status {
		case StepSucceeded:
			result.Succeeded++
			if step.Repeat == nil {
				rc.SetStepOutput(step.ID, res.Output)
			}
		case StepFailed:
			result.Failed++
		case StepSkipped:
			result.Skipped++
		}
	}

	if result.Failed > 0 {
		result.Status = StepFailed
	}
	return result, nil
}

// gateOnDependencies implements §4.7 step 1: every depends_on id must
// have recorded Succeeded; Failed, Skipped, or missing produces a
// Skipped result with a reason log.
func (e *Executor) gateOnDependencies(step StepSpec, statusByID map[string]StepStatus) (StepResult, bool) {
	for _, dep := range step.DependsOn {
		status, ok := statusByID[dep]
		if !ok {
			return StepResult{ID: step.ID, Status: StepSkipped,
				Logs: []string{fmt.Sprintf("step '%s' skipped because dependency '%s' has not run", step.ID, dep)}}, true
		}
		if status != StepSucceeded {
			return StepResult{ID: step.ID, Status: StepSkipped,
				Logs: []string{fmt.Sprintf("step '%s' skipped because dependency '%s' %s", step.ID, dep, depReason(status))}}, true
		}
	}
	return StepResult{}, false
}

func depReason(status StepStatus) string {
	switch status {
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "was skipped"
	default:
		return "did not succeed"
	}
}
