// Package runner implements the command runner abstraction (spec
// §4.5): a single `run(command_id, with, body, ctx) → JSON or error`
// capability with three implementations — Noop (preview/tests),
// Registry (dispatches to HTTP or plugin execution per command spec),
// and Custom (test doubles).
package runner

import (
	"context"
	"fmt"

	"github.com/oattyio/oatty/pkg/runctx"
	"github.com/oattyio/oatty/pkg/value"
)

// ExecutionKind names how a command is actually carried out.
type ExecutionKind int

const (
	ExecHTTP ExecutionKind = iota
	ExecPlugin
)

// CommandSpec is the subset of a catalog command the runner needs to
// dispatch a call: its identity, execution kind, and the fields that
// kind requires.
type CommandSpec struct {
	ID     string
	Group  string
	Name   string
	Kind   ExecutionKind

	// HTTP fields.
	ServiceID  string
	Method     string
	Path       string
	AuthScheme string // "", "oauth2", "aws_sigv4"

	// Plugin fields.
	PluginName string
	ToolName   string
}

// Runner is the command execution capability every step dispatches
// through.
type Runner interface {
	Run(ctx context.Context, spec CommandSpec, with value.Value, body value.Value, rc *runctx.RunContext) (value.Value, error)
}

// NoopRunner returns a synthetic success payload without performing
// any I/O — used for workflow preview and unit tests that only care
// about executor control flow.
type NoopRunner struct{}

func (NoopRunner) Run(_ context.Context, spec CommandSpec, with, body value.Value, _ *runctx.RunContext) (value.Value, error) {
	out := value.NewObject().
		Set("command_id", value.String(spec.ID)).
		Set("with", with).
		Set("body", body).
		Set("preview", value.Bool(true))
	return out, nil
}

// CustomRunner wraps a plain function, for tests that need precise
// control over a run's outcome.
type CustomRunner struct {
	Fn func(ctx context.Context, spec CommandSpec, with, body value.Value, rc *runctx.RunContext) (value.Value, error)
}

func (c CustomRunner) Run(ctx context.Context, spec CommandSpec, with, body value.Value, rc *runctx.RunContext) (value.Value, error) {
	return c.Fn(ctx, spec, with, body, rc)
}

// HTTPExecutor executes an HTTP command (§4.5a).
type HTTPExecutor interface {
	ExecuteHTTP(ctx context.Context, spec CommandSpec, with, body value.Value, rc *runctx.RunContext) (value.Value, error)
}

// PluginExecutor executes a plugin tool call (§4.5b).
type PluginExecutor interface {
	ExecutePlugin(ctx context.Context, spec CommandSpec, with, body value.Value, rc *runctx.RunContext) (value.Value, error)
}

// RegistryRunner dispatches each call to either the HTTP or plugin
// executor based on spec.Kind, per §4.5's Registry runner.
type RegistryRunner struct {
	HTTP   HTTPExecutor
	Plugin PluginExecutor
}

func (r RegistryRunner) Run(ctx context.Context, spec CommandSpec, with, body value.Value, rc *runctx.RunContext) (value.Value, error) {
	switch spec.Kind {
	case ExecHTTP:
		if r.HTTP == nil {
			return value.Null, fmt.Errorf("runner: no HTTP executor configured for command %q", spec.ID)
		}
		return r.HTTP.ExecuteHTTP(ctx, spec, with, body, rc)
	case ExecPlugin:
		if r.Plugin == nil {
			return value.Null, fmt.Errorf("runner: no plugin executor configured for command %q", spec.ID)
		}
		return r.Plugin.ExecutePlugin(ctx, spec, with, body, rc)
	default:
		return value.Null, fmt.Errorf("runner: unknown execution kind for command %q", spec.ID)
	}
}
