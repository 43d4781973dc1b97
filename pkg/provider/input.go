package provider

import (
	"fmt"
	"regexp"

	"github.com/oattyio/oatty/pkg/value"
)

// Mode controls whether an input accepts one selection or many.
type Mode int

const (
	Single Mode = iota
	Multiple
)

// Select names which fields of a provider's candidate records back
// the value, display label, and identifier of a choice.
type Select struct {
	ValueField   string
	DisplayField string
	IDField      string
}

// Validation holds the constraints an input's resolved value must
// satisfy.
type Validation struct {
	Required bool
	Enum     []string
	Pattern  string
	MinLen   int
	MaxLen   int
}

// DefaultSource names where an input's seed value comes from when no
// provider binding or user override supplies one.
type DefaultSource int

const (
	DefaultHistory DefaultSource = iota
	DefaultLiteral
	DefaultEnv
	DefaultWorkflowOutput
)

// Default describes an input's fallback seed value.
type Default struct {
	From  DefaultSource
	Value value.Value
}

// InputDefinition is the authored shape of a workflow input (spec §3).
type InputDefinition struct {
	Name            string
	Type            string
	Provider        string
	Select          *Select
	Mode            Mode
	ProviderArgs    []ArgBinding
	Optional        bool
	Validate        *Validation
	Default         *Default
	Placeholder     string
	EnumeratedValues []string
}

// ValidateValue checks v against the input's declared validation
// rules, returning the first failure reason or "" if valid.
func ValidateValue(def InputDefinition, v value.Value) string {
	val := def.Validate
	if val == nil {
		return ""
	}
	if val.Required && v.IsNull() {
		return fmt.Sprintf("input %q is required", def.Name)
	}
	if s, ok := v.AsString(); ok {
		if val.MinLen > 0 && len(s) < val.MinLen {
			return fmt.Sprintf("input %q shorter than minimum length %d", def.Name, val.MinLen)
		}
		if val.MaxLen > 0 && len(s) > val.MaxLen {
			return fmt.Sprintf("input %q longer than maximum length %d", def.Name, val.MaxLen)
		}
		if val.Pattern != "" {
			re, err := regexp.Compile(val.Pattern)
			if err != nil {
				return fmt.Sprintf("input %q has an invalid validation pattern", def.Name)
			}
			if !re.MatchString(s) {
				return fmt.Sprintf("input %q does not match the required pattern", def.Name)
			}
		}
		if len(val.Enum) > 0 && !contains(val.Enum, s) {
			return fmt.Sprintf("input %q is not one of the allowed values", def.Name)
		}
	}
	return ""
}

func contains(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}
