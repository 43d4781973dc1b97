package workflowfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oattyio/oatty/pkg/provider"
)

const sampleYAML = `
id: deploy-widget
inputs:
  - name: service_id
    type: string
    validate:
      required: true
    default:
      from: literal
      value: widgets
steps:
  - id: list
    run: widgets.list
    with:
      limit: 10
  - id: deploy
    run: widgets.deploy
    depends_on: [list]
    if: "steps.list.count != 0"
    with:
      service_id: "${{ inputs.service_id }}"
    repeat:
      every: 5s
      until: "steps.deploy.status == \"ready\""
`

func TestLoadParsesStepsAndInputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0600))

	spec, bindings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "deploy-widget", spec.ID)
	require.Len(t, spec.Steps, 2)
	assert.Equal(t, "widgets.list", spec.Steps[0].Run)
	assert.Equal(t, []string{"list"}, spec.Steps[1].DependsOn)
	require.NotNil(t, spec.Steps[1].Repeat)
	assert.Equal(t, "5s", spec.Steps[1].Repeat.Every)

	require.Len(t, bindings, 1)
	assert.Equal(t, "service_id", bindings[0].Definition.Name)
	require.NotNil(t, bindings[0].Definition.Validate)
	assert.True(t, bindings[0].Definition.Validate.Required)
	require.NotNil(t, bindings[0].Definition.Default)
	assert.Equal(t, provider.DefaultLiteral, bindings[0].Definition.Default.From)
}

func TestLoadRejectsUnknownDefaultSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
id: bad
inputs:
  - name: x
    default:
      from: nonsense
steps: []
`), 0600))

	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
