package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/oattyio/oatty/pkg/condition"
	"github.com/oattyio/oatty/pkg/runctx"
	"github.com/oattyio/oatty/pkg/runner"
	"github.com/oattyio/oatty/pkg/template"
	"github.com/oattyio/oatty/pkg/value"
)

// StepExecutor runs a single StepSpec to completion, including its
// condition gate, template interpolation, dispatch to a runner.Runner,
// and repeat-until polling (spec §4.6).
type StepExecutor struct {
	Runner runner.Runner
	Logger *slog.Logger
}

// NewStepExecutor returns a StepExecutor; a nil logger falls back to
// slog.Default().
func NewStepExecutor(r runner.Runner, logger *slog.Logger) *StepExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &StepExecutor{Runner: r, Logger: logger}
}

// Execute runs step against rc, resolving its command via spec.
func (e *StepExecutor) Execute(ctx context.Context, step StepSpec, spec runner.CommandSpec, rc *runctx.RunContext) StepResult {
	if step.If != "" {
		outcome, err := condition.Evaluate(step.If, rc)
		if err != nil {
			return StepResult{ID: step.ID, Status: StepFailed, Output: value.Null,
				Logs: []string{fmt.Sprintf("invalid if expression: %v", err)}}
		}
		if outcome == condition.Unresolved {
			unresolved, _ := condition.FindUnresolvedReferencesInCondition(step.If, rc)
			return StepResult{ID: step.ID, Status: StepSkipped, Output: value.Null,
				Logs: []string{fmt.Sprintf("step %s skipped: unresolved condition references: %v", step.ID, unresolved)}}
		}
		if outcome == condition.False {
			return StepResult{ID: step.ID, Status: StepSkipped, Output: value.Null,
				Logs: []string{fmt.Sprintf("step %s skipped by condition", step.ID)}}
		}
	}

	if unresolved := collectUnresolvedTemplates(step, rc); len(unresolved) > 0 {
		logs := make([]string, len(unresolved))
		for i, u := range unresolved {
			logs[i] = fmt.Sprintf("unresolved template at %s: %s", u.source, u.ref.Original)
		}
		return StepResult{ID: step.ID, Status: StepFailed, Output: value.Null, Logs: logs}
	}

	with := renderOrNull(step.With, rc)
	body := renderOrNull(step.Body, rc)

	if step.Repeat != nil {
		return e.executeRepeat(ctx, step, spec, with, body, rc)
	}
	return e.executeOnce(ctx, step, spec, with, body, rc)
}

func (e *StepExecutor) executeOnce(ctx context.Context, step StepSpec, spec runner.CommandSpec, with, body value.Value, rc *runctx.RunContext) StepResult {
	out, err := e.Runner.Run(ctx, spec, with, body, rc)
	if err != nil {
		return StepResult{ID: step.ID, Status: StepFailed, Output: value.Null,
			Logs: []string{err.Error()}, Attempts: 1}
	}
	return StepResult{ID: step.ID, Status: StepSucceeded, Output: out, Attempts: 1}
}

func (e *StepExecutor) executeRepeat(ctx context.Context, step StepSpec, spec runner.CommandSpec, with, body value.Value, rc *runctx.RunContext) StepResult {
	interval := parseRepeatInterval(step.Repeat.Every)

	var last value.Value
	var logs []string
	for attempt := uint(1); attempt <= repeatGuard; attempt++ {
		out, err := e.Runner.Run(ctx, spec, with, body, rc)
		if err != nil {
			logs = append(logs, err.Error())
			return StepResult{ID: step.ID, Status: StepFailed, Output: value.Null, Logs: logs, Attempts: attempt}
		}
		last = out
		rc.SetStepOutput(step.ID, last)

		outcome, evalErr := condition.Evaluate(step.Repeat.Until, rc)
		if evalErr != nil {
			logs = append(logs, fmt.Sprintf("invalid until expression: %v", evalErr))
			return StepResult{ID: step.ID, Status: StepFailed, Output: last, Logs: logs, Attempts: attempt}
		}
		if outcome == condition.True {
			return StepResult{ID: step.ID, Status: StepSucceeded, Output: last, Logs: logs, Attempts: attempt}
		}

		if attempt == repeatGuard {
			break
		}
		select {
		case <-ctx.Done():
			logs = append(logs, ctx.Err().Error())
			return StepResult{ID: step.ID, Status: StepFailed, Output: last, Logs: logs, Attempts: attempt}
		case <-time.After(interval):
		}
	}

	logs = append(logs, fmt.Sprintf("repeat guard tripped at %d attempts; stopping", repeatGuard))
	return StepResult{ID: step.ID, Status: StepFailed, Output: last, Logs: logs, Attempts: repeatGuard}
}

// parseRepeatInterval parses "<N>s" or "<N>m"; any parse failure
// defaults to 1 second (spec §4.6).
func parseRepeatInterval(every string) time.Duration {
	every = strings.TrimSpace(every)
	if len(every) < 2 {
		return defaultRepeatInterval
	}
	unit := every[len(every)-1]
	numPart := every[:len(every)-1]
	n, err := strconv.Atoi(numPart)
	if err != nil || n < 0 {
		return defaultRepeatInterval
	}
	switch unit {
	case 's':
		return time.Duration(n) * time.Second
	case 'm':
		return time.Duration(n) * time.Minute
	default:
		return defaultRepeatInterval
	}
}

type unresolvedTemplate struct {
	source string
	ref    template.UnresolvedRef
}

func collectUnresolvedTemplates(step StepSpec, rc *runctx.RunContext) []unresolvedTemplate {
	var out []unresolvedTemplate
	if !step.With.IsNull() {
		for _, ref := range template.CollectUnresolvedStepTemplates(step.With, rc) {
			out = append(out, unresolvedTemplate{source: "with", ref: ref})
		}
	}
	if !step.Body.IsNull() {
		for _, ref := range template.CollectUnresolvedStepTemplates(step.Body, rc) {
			out = append(out, unresolvedTemplate{source: "body", ref: ref})
		}
	}
	return out
}

func renderOrNull(v value.Value, rc *runctx.RunContext) value.Value {
	if v.IsNull() {
		return value.Null
	}
	out, _ := template.Render(v, rc)
	return out
}
