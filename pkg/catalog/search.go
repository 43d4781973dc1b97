package catalog

import (
	"strings"

	"github.com/expr-lang/expr"
)

// searchEnv is the environment exposed to a compiled search predicate:
// one command's match-key fields as plain strings.
type searchEnv struct {
	Group  string
	Name   string
	Method string
	Path   string
}

// hasExprMetachars is a cheap heuristic distinguishing an expr-lang
// predicate ("Method == \"GET\" && Group == \"apps\"") from a plain
// substring query ("apps list").
func hasExprMetachars(query string) bool {
	return strings.ContainsAny(query, "=!<>&|()\"")
}

// Search filters commands by query: an expr-lang boolean predicate
// evaluated against {group, name, method, path} if query looks like
// an expression, otherwise a case-insensitive substring match across
// the same fields.
func Search(commands []Command, query string) ([]Command, error) {
	if query == "" {
		return commands, nil
	}

	if hasExprMetachars(query) {
		return searchExpr(commands, query)
	}
	return searchSubstring(commands, query), nil
}

func searchExpr(commands []Command, query string) ([]Command, error) {
	program, err := expr.Compile(query, expr.Env(searchEnv{}), expr.AsBool())
	if err != nil {
		return nil, err
	}

	var matched []Command
	for _, c := range commands {
		env := searchEnv{Group: c.Group, Name: c.Name, Method: c.HTTPMethod, Path: c.HTTPPath}
		out, err := expr.Run(program, env)
		if err != nil {
			return nil, err
		}
		if ok, _ := out.(bool); ok {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func searchSubstring(commands []Command, query string) []Command {
	q := strings.ToLower(query)
	var matched []Command
	for _, c := range commands {
		if strings.Contains(strings.ToLower(c.Group), q) ||
			strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.HTTPMethod), q) ||
			strings.Contains(strings.ToLower(c.HTTPPath), q) {
			matched = append(matched, c)
		}
	}
	return matched
}
