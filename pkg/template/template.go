// Package template implements `${{ expr }}` interpolation over JSON
// trees: step `with`/`body` values, where `expr` is a dotted path
// rooted in inputs, steps.<id>, or env.
//
// Design Note (spec §9): tokens are scanned by hand rather than via a
// templating library (text/template, Masterminds/sprig, and similar
// all assume text output) because a whole-string token must be able to
// substitute a non-string JSON value in place — an array, object,
// number, or bool — and still preserve ordered map/array structure
// around it.
package template

import (
	"strings"

	"github.com/oattyio/oatty/pkg/value"
)

// Resolver resolves a dotted reference path to a value. It mirrors
// condition.Resolver's contract: ok is false when the path cannot be
// resolved against the current run context.
type Resolver interface {
	Resolve(path []string) (value.Value, bool)
}

// UnresolvedRef identifies a template token that could not be
// resolved, and where it was found, for collect_unresolved_step_templates-style
// diagnostics.
type UnresolvedRef struct {
	Path     []string
	Original string
}

// Render walks v, substituting every `${{ expr }}` token it finds in
// string leaves. Object key order and array order are preserved.
// Unresolved tokens are left textually intact in the output and
// reported in the returned slice.
func Render(v value.Value, r Resolver) (value.Value, []UnresolvedRef) {
	var unresolved []UnresolvedRef
	out := renderValue(v, r, &unresolved)
	return out, unresolved
}

func renderValue(v value.Value, r Resolver, unresolved *[]UnresolvedRef) value.Value {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return renderString(s, r, unresolved)
	case value.KindArray:
		arr, _ := v.AsArray()
		items := make([]value.Value, len(arr))
		for i, e := range arr {
			items[i] = renderValue(e, r, unresolved)
		}
		return value.Array(items...)
	case value.KindObject:
		obj, _ := v.AsObject()
		out := value.NewObject()
		if obj != nil {
			for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
				out = out.Set(pair.Key, renderValue(pair.Value, r, unresolved))
			}
		}
		return out
	default:
		return v
	}
}

// renderString applies the whole-string-token rule: if s is exactly
// one `${{ expr }}` span with nothing else around it, the resolved
// value (of any kind) replaces it directly; otherwise every span is
// stringified and concatenated into the surrounding text.
func renderString(s string, r Resolver, unresolved *[]UnresolvedRef) value.Value {
	spans := scan(s)
	if len(spans) == 0 {
		return value.String(s)
	}
	if len(spans) == 1 && spans[0].start == 0 && spans[0].end == len(s) {
		path := splitPath(spans[0].expr)
		resolved, ok := r.Resolve(path)
		if !ok {
			*unresolved = append(*unresolved, UnresolvedRef{Path: path, Original: s})
			return value.String(s)
		}
		return resolved
	}

	var sb strings.Builder
	last := 0
	for _, sp := range spans {
		sb.WriteString(s[last:sp.start])
		path := splitPath(sp.expr)
		resolved, ok := r.Resolve(path)
		if !ok {
			*unresolved = append(*unresolved, UnresolvedRef{Path: path, Original: s[sp.start:sp.end]})
			sb.WriteString(s[sp.start:sp.end])
		} else {
			sb.WriteString(resolved.String())
		}
		last = sp.end
	}
	sb.WriteString(s[last:])
	return value.String(sb.String())
}

type span struct {
	start, end int
	expr       string
}

// scan locates every `${{ ... }}` token in s, matching braces and
// quotes so an expr containing a literal `}}` inside a string does not
// terminate the token early.
func scan(s string) []span {
	var spans []span
	i := 0
	for i < len(s) {
		open := strings.Index(s[i:], "${{")
		if open < 0 {
			break
		}
		start := i + open
		j := start + 3
		depth := 1
		exprStart := j
		var inQuote byte
		for j < len(s) {
			c := s[j]
			switch {
			case inQuote != 0:
				if c == '\\' && j+1 < len(s) {
					j++
				} else if c == inQuote {
					inQuote = 0
				}
			case c == '"' || c == '\'':
				inQuote = c
			case c == '{':
				depth++
			case c == '}':
				depth--
				if depth == 0 {
					// Expect a second '}' to close `}}`.
					if j+1 < len(s) && s[j+1] == '}' {
						spans = append(spans, span{
							start: start,
							end:   j + 2,
							expr:  strings.TrimSpace(s[exprStart:j]),
						})
						j += 2
						goto next
					}
				}
			}
			j++
		}
		// Unterminated token: stop scanning further to avoid a bogus match.
		return spans
	next:
		i = j
	}
	return spans
}

// splitPath normalizes `a.b[0].c` into ["a","b","0","c"].
func splitPath(raw string) []string {
	raw = strings.ReplaceAll(raw, "[", ".")
	raw = strings.ReplaceAll(raw, "]", "")
	parts := strings.Split(raw, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CollectUnresolvedStepTemplates walks v and returns every template
// reference that cannot currently be resolved, without mutating
// anything — the inspection pass spec §4.1 calls
// collect_unresolved_step_templates, used by the workflow executor to
// gate a step before attempting to run it.
func CollectUnresolvedStepTemplates(v value.Value, r Resolver) []UnresolvedRef {
	_, unresolved := Render(v, r)
	return unresolved
}
