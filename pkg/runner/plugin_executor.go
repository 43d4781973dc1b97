package runner

import (
	"context"
	"fmt"

	"github.com/oattyio/oatty/pkg/runctx"
	"github.com/oattyio/oatty/pkg/value"
)

// PluginGateway is the narrow surface the plugin command runner needs
// from the lifecycle manager (§4.10): issue a tool call against a
// named, already-running plugin. Defined here (rather than imported
// from pkg/plugin) to keep pkg/runner free of a dependency on plugin
// lifecycle internals — pkg/plugin.Manager implements this interface.
type PluginGateway interface {
	CallTool(ctx context.Context, pluginName, toolName string, args value.Value) (value.Value, error)
}

// PluginRunner implements PluginExecutor by looking up the owning
// plugin for a command and issuing a callTool through the gateway
// (spec §4.5b).
type PluginRunner struct {
	Gateway PluginGateway
}

func (p PluginRunner) ExecutePlugin(ctx context.Context, spec CommandSpec, with, body value.Value, _ *runctx.RunContext) (value.Value, error) {
	if p.Gateway == nil {
		return value.Null, fmt.Errorf("runner: no plugin gateway configured for command %q", spec.ID)
	}
	if spec.PluginName == "" || spec.ToolName == "" {
		return value.Null, fmt.Errorf("runner: command %q missing plugin_name/tool_name", spec.ID)
	}

	args := with
	if !body.IsNull() {
		args = args.Set("body", body)
	}

	out, err := p.Gateway.CallTool(ctx, spec.PluginName, spec.ToolName, args)
	if err != nil {
		return value.Null, fmt.Errorf("runner: plugin tool call %s/%s failed: %w", spec.PluginName, spec.ToolName, err)
	}
	return out, nil
}
