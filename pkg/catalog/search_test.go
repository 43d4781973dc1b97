package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCommands() []Command {
	return []Command{
		{Group: "apps", Name: "apps:list", HTTPMethod: "GET", HTTPPath: "/apps"},
		{Group: "apps", Name: "apps:delete", HTTPMethod: "DELETE", HTTPPath: "/apps/{id}"},
		{Group: "users", Name: "users:list", HTTPMethod: "GET", HTTPPath: "/users"},
	}
}

func TestSearchSubstringMatchesAnyField(t *testing.T) {
	out, err := Search(sampleCommands(), "apps")
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestSearchEmptyQueryReturnsAll(t *testing.T) {
	out, err := Search(sampleCommands(), "")
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestSearchExprPredicate(t *testing.T) {
	out, err := Search(sampleCommands(), `Method == "GET" && Group == "apps"`)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "apps:list", out[0].Name)
}

func TestSearchExprCompileError(t *testing.T) {
	_, err := Search(sampleCommands(), `Method == `)
	assert.Error(t, err)
}
