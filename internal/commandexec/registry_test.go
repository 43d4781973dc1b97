package commandexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oattyio/oatty/pkg/catalog"
	"github.com/oattyio/oatty/pkg/runner"
)

func TestRegistryResolvesByGroupDotName(t *testing.T) {
	r := NewRegistry([]catalog.Catalog{{
		Manifest: catalog.Manifest{Commands: []catalog.Command{
			{ID: "c1", Group: "widgets", Name: "list", HTTPMethod: "GET", HTTPPath: "/widgets", ServiceID: "widgets"},
		}},
	}})

	spec, ok := r.Resolve("widgets.list")
	require.True(t, ok)
	assert.Equal(t, runner.ExecHTTP, spec.Kind)
	assert.Equal(t, "widgets", spec.ServiceID)
}

func TestRegistryMissingRunIDReturnsFalse(t *testing.T) {
	r := NewRegistry(nil)
	_, ok := r.Resolve("ghost.op")
	assert.False(t, ok)
}

func TestRegistryMapsPluginKind(t *testing.T) {
	r := NewRegistry([]catalog.Catalog{{
		Manifest: catalog.Manifest{Commands: []catalog.Command{
			{ID: "c2", Group: "search", Name: "query", Kind: catalog.ExecutionPlugin, PluginName: "search", ToolName: "query"},
		}},
	}})

	spec, ok := r.Resolve("search.query")
	require.True(t, ok)
	assert.Equal(t, runner.ExecPlugin, spec.Kind)
	assert.Equal(t, "search", spec.PluginName)
}
