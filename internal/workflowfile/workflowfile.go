// Package workflowfile loads an authored workflow (spec §3) from a
// YAML document into the in-memory workflow.WorkflowSpec and
// runstate.InputBinding shapes the executor and run-state tracker
// operate on.
package workflowfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/oattyio/oatty/pkg/provider"
	"github.com/oattyio/oatty/pkg/runstate"
	"github.com/oattyio/oatty/pkg/value"
	"github.com/oattyio/oatty/pkg/workflow"
)

type document struct {
	ID     string          `yaml:"id"`
	Inputs []inputDocument `yaml:"inputs"`
	Steps  []stepDocument  `yaml:"steps"`
}

type inputDocument struct {
	Name         string           `yaml:"name"`
	Type         string           `yaml:"type"`
	Provider     string           `yaml:"provider"`
	Select       *selectDocument  `yaml:"select"`
	Multiple     bool             `yaml:"multiple"`
	ProviderArgs []argDocument    `yaml:"provider_args"`
	Optional     bool             `yaml:"optional"`
	Validate     *validateDocument `yaml:"validate"`
	Default      *defaultDocument `yaml:"default"`
	Placeholder  string           `yaml:"placeholder"`
	EnumeratedValues []string     `yaml:"enumerated_values"`
}

type selectDocument struct {
	ValueField   string `yaml:"value_field"`
	DisplayField string `yaml:"display_field"`
	IDField      string `yaml:"id_field"`
}

type argDocument struct {
	Name      string      `yaml:"name"`
	Literal   interface{} `yaml:"literal"`
	From      string      `yaml:"from"` // "step" or "input"
	SourceID  string      `yaml:"source_id"`
	Path      string      `yaml:"path"`
	Required  bool        `yaml:"required"`
	OnMissing string      `yaml:"on_missing"` // "prompt", "skip", "fail"
}

type validateDocument struct {
	Required bool     `yaml:"required"`
	Enum     []string `yaml:"enum"`
	Pattern  string   `yaml:"pattern"`
	MinLen   int      `yaml:"min_len"`
	MaxLen   int      `yaml:"max_len"`
}

type defaultDocument struct {
	From  string      `yaml:"from"` // "history", "literal", "env", "workflow_output"
	Value interface{} `yaml:"value"`
}

type stepDocument struct {
	ID             string       `yaml:"id"`
	Run            string       `yaml:"run"`
	DependsOn      []string     `yaml:"depends_on"`
	With           interface{}  `yaml:"with"`
	Body           interface{}  `yaml:"body"`
	If             string       `yaml:"if"`
	Repeat         *repeatDocument `yaml:"repeat"`
	OutputContract []string     `yaml:"output_contract"`
}

type repeatDocument struct {
	Every string `yaml:"every"`
	Until string `yaml:"until"`
}

// Load reads and parses the workflow YAML file at path, returning the
// workflow spec plus its input bindings.
func Load(path string) (workflow.WorkflowSpec, []runstate.InputBinding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return workflow.WorkflowSpec{}, nil, fmt.Errorf("workflowfile: reading %s: %w", path, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return workflow.WorkflowSpec{}, nil, fmt.Errorf("workflowfile: parsing %s: %w", path, err)
	}

	spec := workflow.WorkflowSpec{ID: doc.ID, Steps: make([]workflow.StepSpec, len(doc.Steps))}
	for i, s := range doc.Steps {
		spec.Steps[i] = toStepSpec(s)
	}

	bindings := make([]runstate.InputBinding, len(doc.Inputs))
	for i, in := range doc.Inputs {
		def, args, err := toInputDefinition(in)
		if err != nil {
			return workflow.WorkflowSpec{}, nil, fmt.Errorf("workflowfile: input %q: %w", in.Name, err)
		}
		bindings[i] = runstate.InputBinding{Definition: def, Args: args}
	}

	return spec, bindings, nil
}

func toStepSpec(s stepDocument) workflow.StepSpec {
	step := workflow.StepSpec{
		ID:             s.ID,
		Run:            s.Run,
		DependsOn:      s.DependsOn,
		With:           value.FromAny(s.With),
		Body:           value.FromAny(s.Body),
		If:             s.If,
		OutputContract: s.OutputContract,
	}
	if s.Repeat != nil {
		step.Repeat = &workflow.RepeatSpec{Every: s.Repeat.Every, Until: s.Repeat.Until}
	}
	return step
}

func toInputDefinition(in inputDocument) (provider.InputDefinition, []provider.ArgBinding, error) {
	def := provider.InputDefinition{
		Name:             in.Name,
		Type:             in.Type,
		Provider:         in.Provider,
		Optional:         in.Optional,
		Placeholder:      in.Placeholder,
		EnumeratedValues: in.EnumeratedValues,
	}
	if in.Multiple {
		def.Mode = provider.Multiple
	}
	if in.Select != nil {
		def.Select = &provider.Select{
			ValueField:   in.Select.ValueField,
			DisplayField: in.Select.DisplayField,
			IDField:      in.Select.IDField,
		}
	}
	if in.Validate != nil {
		def.Validate = &provider.Validation{
			Required: in.Validate.Required,
			Enum:     in.Validate.Enum,
			Pattern:  in.Validate.Pattern,
			MinLen:   in.Validate.MinLen,
			MaxLen:   in.Validate.MaxLen,
		}
	}
	if in.Default != nil {
		src, err := parseDefaultSource(in.Default.From)
		if err != nil {
			return def, nil, err
		}
		def.Default = &provider.Default{From: src, Value: value.FromAny(in.Default.Value)}
	}

	args := make([]provider.ArgBinding, len(in.ProviderArgs))
	for i, a := range in.ProviderArgs {
		binding, err := toArgBinding(a)
		if err != nil {
			return def, nil, err
		}
		args[i] = binding
	}
	def.ProviderArgs = args

	return def, args, nil
}

func toArgBinding(a argDocument) (provider.ArgBinding, error) {
	b := provider.ArgBinding{Name: a.Name, SourceID: a.SourceID, Path: a.Path, Required: a.Required}

	if a.Literal != nil {
		lit := value.FromAny(a.Literal)
		b.Literal = &lit
	}

	switch a.From {
	case "", "step":
		b.From = provider.FromStep
	case "input":
		b.From = provider.FromInput
	default:
		return b, fmt.Errorf("unknown provider_args from %q", a.From)
	}

	switch a.OnMissing {
	case "", "prompt":
		b.OnMissing = provider.OnMissingPrompt
	case "skip":
		b.OnMissing = provider.OnMissingSkip
	case "fail":
		b.OnMissing = provider.OnMissingFail
	default:
		return b, fmt.Errorf("unknown on_missing %q", a.OnMissing)
	}

	return b, nil
}

func parseDefaultSource(from string) (provider.DefaultSource, error) {
	switch from {
	case "history":
		return provider.DefaultHistory, nil
	case "literal":
		return provider.DefaultLiteral, nil
	case "env":
		return provider.DefaultEnv, nil
	case "workflow_output":
		return provider.DefaultWorkflowOutput, nil
	default:
		return 0, fmt.Errorf("unknown default from %q", from)
	}
}
