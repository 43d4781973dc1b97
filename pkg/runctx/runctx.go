// Package runctx defines RunContext, the shared mutable execution
// scratchpad the workflow executor, condition evaluator, and template
// interpolator all read and write during a single run (spec §3).
package runctx

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/oattyio/oatty/pkg/value"
)

// RunContext holds per-run input bindings, environment variable
// overrides, and the accumulated output of every step executed so
// far. It is created per run, mutated in place by the executor after
// each step and when inputs are bound, and discarded when the run
// finishes.
type RunContext struct {
	Inputs      *orderedmap.OrderedMap[string, value.Value]
	Environment map[string]string
	Steps       map[string]value.Value
}

// New returns an empty RunContext ready for a fresh run.
func New() *RunContext {
	return &RunContext{
		Inputs:      orderedmap.New[string, value.Value](),
		Environment: make(map[string]string),
		Steps:       make(map[string]value.Value),
	}
}

// SetStepOutput records the JSON output a step produced, making it
// visible to later steps' templates and conditions via steps.<id>.
func (rc *RunContext) SetStepOutput(stepID string, output value.Value) {
	rc.Steps[stepID] = output
}

// SetInput assigns (or overwrites) a resolved input value.
func (rc *RunContext) SetInput(name string, v value.Value) {
	rc.Inputs.Set(name, v)
}

// Resolve implements both condition.Resolver and template.Resolver: it
// walks path against inputs, steps.<id>, or env, returning (value,
// false) when the root segment is unknown or any intermediate segment
// cannot be traversed.
func (rc *RunContext) Resolve(path []string) (value.Value, bool) {
	if len(path) == 0 {
		return value.Null, false
	}
	root, rest := path[0], path[1:]
	switch root {
	case "inputs":
		if len(rest) == 0 {
			return value.Null, false
		}
		v, ok := rc.Inputs.Get(rest[0])
		if !ok {
			return value.Null, false
		}
		return descend(v, rest[1:])
	case "steps":
		if len(rest) == 0 {
			return value.Null, false
		}
		v, ok := rc.Steps[rest[0]]
		if !ok {
			return value.Null, false
		}
		return descend(v, rest[1:])
	case "env":
		if len(rest) == 0 {
			return value.Null, false
		}
		s, ok := rc.Environment[rest[0]]
		if !ok {
			return value.Null, false
		}
		return value.String(s), true
	default:
		return value.Null, false
	}
}

func descend(v value.Value, segs []string) (value.Value, bool) {
	cur := v
	for _, seg := range segs {
		switch cur.Kind() {
		case value.KindObject:
			next, ok := cur.Get(seg)
			if !ok {
				return value.Null, false
			}
			cur = next
		case value.KindArray:
			idx, err := atoi(seg)
			if err != nil {
				return value.Null, false
			}
			next, ok := cur.Index(idx)
			if !ok {
				return value.Null, false
			}
			cur = next
		default:
			return value.Null, false
		}
	}
	return cur, true
}

func atoi(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, errNotANumber
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errNotANumber
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

var errNotANumber = notANumberError{}

type notANumberError struct{}

func (notANumberError) Error() string { return "runctx: path segment is not a number" }
