// Package fieldpath resolves dotted field references against JSON
// value trees and JSON-schema-like property trees, and produces
// structured "did you mean" diagnostics when a reference cannot be
// resolved unambiguously.
//
// Design Note: ResolveJSON walks the JSON value tree directly, while
// SelectByPath compiles an authored path into a github.com/itchyny/gojq
// query (array index and object field access map onto gojq query
// syntax cleanly). The schema-side traversal works on SchemaProperty,
// a subset of a JSON-schema node, and yields the same Candidate type
// as the JSON side, so both faces of the symmetric traversal (spec
// §4.3) share one candidate-scoring helper.
package fieldpath

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/oattyio/oatty/pkg/value"
)

// Candidate is a (path, value) pair discovered during traversal whose
// final path segment matches the requested leaf name.
type Candidate struct {
	Path  []string
	Value value.Value
}

// MissingDetails is the three-faced diagnostic spec §4.3 calls
// SelectValueFieldMissingDetails: a message for runtime logs, a
// message for workflow-authoring validation, and a suggested next
// step for the author or operator.
type MissingDetails struct {
	RuntimeMessage    string
	ValidationMessage string
	NextStep          string
}

// ResolveJSON descends v (maps and arrays) collecting every scalar
// leaf whose final path segment equals leaf. Non-scalar values
// (arrays/objects) are never returned as candidates even if their key
// matches, matching spec §4.3's "value is scalar" requirement.
func ResolveJSON(v value.Value, leaf string) []Candidate {
	var out []Candidate
	walkJSON(v, nil, leaf, &out)
	return out
}

func walkJSON(v value.Value, path []string, leaf string, out *[]Candidate) {
	switch v.Kind() {
	case value.KindObject:
		obj, _ := v.AsObject()
		if obj == nil {
			return
		}
		for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
			childPath := appendPath(path, pair.Key)
			if pair.Key == leaf && pair.Value.IsScalar() {
				*out = append(*out, Candidate{Path: childPath, Value: pair.Value})
			}
			walkJSON(pair.Value, childPath, leaf, out)
		}
	case value.KindArray:
		arr, _ := v.AsArray()
		for i, e := range arr {
			childPath := appendPath(path, strconv.Itoa(i))
			walkJSON(e, childPath, leaf, out)
		}
	}
}

func appendPath(path []string, seg string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = seg
	return out
}

// SelectByPath evaluates a dotted path (as produced by a Candidate, or
// authored directly, e.g. "items[0].id") against v using a compiled
// gojq query, returning the selected value. ok is false when the path
// does not parse, fails to evaluate, or selects null (a missing key).
func SelectByPath(v value.Value, path string) (value.Value, bool) {
	query := toJQQuery(path)
	q, err := gojq.Parse(query)
	if err != nil {
		return value.Null, false
	}
	iter := q.Run(v.ToAny())
	result, ok := iter.Next()
	if !ok {
		return value.Null, false
	}
	if err, isErr := result.(error); isErr {
		_ = err
		return value.Null, false
	}
	if result == nil {
		return value.Null, false
	}
	return value.FromAny(result), true
}

// toJQQuery turns a dotted/bracketed author path like "a.b[0].c" into
// a gojq query string ".a.b[0].c", tolerating a leading "." already
// present.
func toJQQuery(path string) string {
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return "."
	}
	return "." + path
}

// SchemaProperty mirrors the subset of a JSON-schema node the
// traversal needs: type, nested properties, array item schema, and
// the set of required field names.
type SchemaProperty struct {
	Type       string
	Properties map[string]*SchemaProperty
	Items      *SchemaProperty
	Required   []string
}

// ResolveSchema mirrors ResolveJSON over a schema tree: it walks every
// entry of Properties and descends into Items as a "[]" path segment,
// collecting each path whose final segment equals leaf. A node with
// neither Properties nor Items contributes nothing below itself.
func ResolveSchema(root *SchemaProperty, leaf string) []Candidate {
	var out []Candidate
	walkSchema(root, nil, leaf, &out)
	return out
}

func walkSchema(p *SchemaProperty, path []string, leaf string, out *[]Candidate) {
	if p == nil {
		return
	}
	for name, child := range p.Properties {
		childPath := appendPath(path, name)
		if name == leaf {
			*out = append(*out, Candidate{Path: childPath})
		}
		walkSchema(child, childPath, leaf, out)
	}
	if p.Items != nil {
		walkSchema(p.Items, appendPath(path, "[]"), leaf, out)
	}
}

// IsArrayProjectionSegment reports whether seg denotes "descend into
// every array element" rather than naming an object field.
func IsArrayProjectionSegment(seg string) bool {
	if seg == "[]" || seg == "*" {
		return true
	}
	if _, err := strconv.Atoi(seg); err == nil {
		return true
	}
	return false
}

// Diagnose builds a MissingDetails for a failed field-path lookup on
// the object named objectLabel (e.g. a step id or provider name),
// given the candidates that a best-effort scan found for leaf and the
// object's top-level field names (used for the zero-candidate case).
func Diagnose(objectLabel, leaf string, candidates []Candidate, topLevelFields []string) MissingDetails {
	switch len(candidates) {
	case 0:
		sorted := append([]string(nil), topLevelFields...)
		sort.Strings(sorted)
		return MissingDetails{
			RuntimeMessage:    fmt.Sprintf("field %q not found on %s", leaf, objectLabel),
			ValidationMessage: fmt.Sprintf("%s has no field named %q", objectLabel, leaf),
			NextStep:          fmt.Sprintf("available top-level fields: %s", strings.Join(sorted, ", ")),
		}
	case 1:
		return MissingDetails{
			RuntimeMessage:    fmt.Sprintf("field %q not found on %s; did you mean %q?", leaf, objectLabel, dotted(candidates[0].Path)),
			ValidationMessage: fmt.Sprintf("%s has no field named %q; did you mean %q?", objectLabel, leaf, dotted(candidates[0].Path)),
			NextStep:          fmt.Sprintf("use select path %q", dotted(candidates[0].Path)),
		}
	default:
		paths := make([]string, len(candidates))
		for i, c := range candidates {
			paths[i] = dotted(c.Path)
		}
		sort.Strings(paths)
		return MissingDetails{
			RuntimeMessage:    fmt.Sprintf("field %q is ambiguous on %s, candidates: %s", leaf, objectLabel, strings.Join(paths, ", ")),
			ValidationMessage: fmt.Sprintf("%s has multiple fields named %q, candidates: %s", objectLabel, leaf, strings.Join(paths, ", ")),
			NextStep:          "disambiguate by specifying a full select path",
		}
	}
}

func dotted(path []string) string {
	return strings.Join(path, ".")
}

// ScoreCandidates ranks candidates by how closely their full dotted
// path resembles hint (a previously authored or guessed path),
// shortest-path-first as a tiebreak. This is a supplemental
// refinement over the single/multi/zero split in spec §4.3: when a
// lookup is ambiguous, it orders the "did you mean" suggestions
// instead of leaving them in traversal order.
func ScoreCandidates(candidates []Candidate, hint string) []Candidate {
	type scored struct {
		c     Candidate
		score int
	}
	hintSegs := strings.Split(strings.TrimPrefix(hint, "."), ".")
	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{c: c, score: commonSuffixLen(c.Path, hintSegs)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return len(ranked[i].c.Path) < len(ranked[j].c.Path)
	})
	out := make([]Candidate, len(ranked))
	for i, r := range ranked {
		out[i] = r.c
	}
	return out
}

func commonSuffixLen(a, b []string) int {
	i, j, n := len(a)-1, len(b)-1, 0
	for i >= 0 && j >= 0 && a[i] == b[j] {
		n++
		i--
		j--
	}
	return n
}
