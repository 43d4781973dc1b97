package commandexec

import (
	"github.com/oattyio/oatty/pkg/catalog"
	"github.com/oattyio/oatty/pkg/runner"
)

// Registry implements workflow.CommandResolver over a fixed set of
// catalogs, resolving a step's `run` identifier to the CommandSpec
// it names. Commands are addressed as "<group>.<name>".
type Registry struct {
	byRunID map[string]runner.CommandSpec
}

// NewRegistry flattens every command in cats into a lookup table keyed
// by "<group>.<name>".
func NewRegistry(cats []catalog.Catalog) *Registry {
	r := &Registry{byRunID: make(map[string]runner.CommandSpec)}
	for _, cat := range cats {
		for _, c := range cat.Manifest.Commands {
			r.byRunID[c.Group+"."+c.Name] = toCommandSpec(c)
		}
	}
	return r
}

func (r *Registry) Resolve(runID string) (runner.CommandSpec, bool) {
	spec, ok := r.byRunID[runID]
	return spec, ok
}

func toCommandSpec(c catalog.Command) runner.CommandSpec {
	kind := runner.ExecHTTP
	if c.Kind == catalog.ExecutionPlugin {
		kind = runner.ExecPlugin
	}
	return runner.CommandSpec{
		ID:         c.ID,
		Group:      c.Group,
		Name:       c.Name,
		Kind:       kind,
		ServiceID:  c.ServiceID,
		Method:     c.HTTPMethod,
		Path:       c.HTTPPath,
		PluginName: c.PluginName,
		ToolName:   c.ToolName,
	}
}
