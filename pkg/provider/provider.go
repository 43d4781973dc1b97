// Package provider resolves an input's provider arguments against a
// RunContext, producing one outcome per argument: Resolved, Prompt,
// Skip, or Error (spec §4.4).
package provider

import (
	"fmt"
	"strings"

	"github.com/oattyio/oatty/pkg/fieldpath"
	"github.com/oattyio/oatty/pkg/runctx"
	"github.com/oattyio/oatty/pkg/value"
)

// OnMissing names what to do when a binding's source value is absent.
type OnMissing int

const (
	OnMissingPrompt OnMissing = iota
	OnMissingSkip
	OnMissingFail
)

// From names the source a binding reads from.
type From int

const (
	FromStep From = iota
	FromInput
)

// ArgBinding is one provider argument: either a literal value or a
// binding into a prior step's output / another input's resolved value,
// with an optional dotted path into that source.
type ArgBinding struct {
	Name      string
	Literal   *value.Value
	From      From
	SourceID  string // step id or input name, depending on From
	Path      string // optional dotted path, e.g. "items[0].id"
	Required  bool
	OnMissing OnMissing
}

// OutcomeKind tags which variant of ProviderBindingOutcome is held.
type OutcomeKind int

const (
	OutcomeResolved OutcomeKind = iota
	OutcomePrompt
	OutcomeSkip
	OutcomeError
)

// Outcome is the tagged union spec §3 calls ProviderBindingOutcome.
type Outcome struct {
	Kind     OutcomeKind
	Value    value.Value // set when Kind == OutcomeResolved
	Reason   string      // set for Prompt/Skip
	Required bool        // set for Prompt
	Message  string      // set for Error
}

func Resolved(v value.Value) Outcome { return Outcome{Kind: OutcomeResolved, Value: v} }
func Prompt(reason string, required bool) Outcome {
	return Outcome{Kind: OutcomePrompt, Reason: reason, Required: required}
}
func Skip(reason string) Outcome { return Outcome{Kind: OutcomeSkip, Reason: reason} }
func Error(message string) Outcome {
	return Outcome{Kind: OutcomeError, Message: message}
}

// ResolveArg resolves a single argument binding against rc.
func ResolveArg(b ArgBinding, rc *runctx.RunContext) Outcome {
	if b.Literal != nil {
		return Resolved(*b.Literal)
	}

	var source value.Value
	var ok bool
	switch b.From {
	case FromStep:
		source, ok = rc.Steps[b.SourceID]
	case FromInput:
		source, ok = rc.Inputs.Get(b.SourceID)
	}
	if !ok {
		return missingOutcome(b, fmt.Sprintf("source %q not found", b.SourceID))
	}

	resolved := source
	if b.Path != "" {
		resolved, ok = fieldpath.SelectByPath(source, b.Path)
		if !ok {
			diag := fieldpath.Diagnose(b.SourceID, lastSegment(b.Path), nil, topLevelFieldNames(source))
			return missingOutcome(b, diag.RuntimeMessage)
		}
	}
	if resolved.IsNull() {
		return missingOutcome(b, fmt.Sprintf("%q resolved to null", b.Name))
	}
	return Resolved(resolved)
}

// ResolveArgs resolves every argument of a provider independently,
// returning one Outcome per argument, keyed by argument name.
func ResolveArgs(args []ArgBinding, rc *runctx.RunContext) map[string]Outcome {
	out := make(map[string]Outcome, len(args))
	for _, b := range args {
		out[b.Name] = ResolveArg(b, rc)
	}
	return out
}

func missingOutcome(b ArgBinding, reason string) Outcome {
	switch b.OnMissing {
	case OnMissingPrompt:
		return Prompt(reason, b.Required)
	case OnMissingSkip:
		return Skip(reason)
	default:
		return Error(reason)
	}
}

func lastSegment(path string) string {
	normalized := strings.NewReplacer("[", ".", "]", "").Replace(path)
	parts := strings.Split(normalized, ".")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return path
}

func topLevelFieldNames(v value.Value) []string {
	obj, ok := v.AsObject()
	if !ok || obj == nil {
		return nil
	}
	var names []string
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}
