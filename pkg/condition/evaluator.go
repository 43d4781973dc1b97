package condition

import (
	"github.com/oattyio/oatty/pkg/value"
)

// Outcome is the tri-state result of evaluating a condition: it
// distinguishes "evaluated to false" from "could not evaluate"
// (spec §4.2), which a plain bool cannot.
type Outcome int

const (
	// False means the condition evaluated definitively to false.
	False Outcome = iota
	// True means the condition evaluated definitively to true.
	True
	// Unresolved means evaluation reached a reference that cannot be
	// resolved against the current run context, and short-circuiting
	// did not make the overall result independent of it.
	Unresolved
)

// Resolver resolves a dotted reference path (as split by the parser,
// e.g. ["steps","find","value"]) against the run context.
type Resolver interface {
	Resolve(path []string) (value.Value, bool)
}

// Evaluate parses and evaluates a condition expression against r.
func Evaluate(expr string, r Resolver) (Outcome, error) {
	node, err := Parse(expr)
	if err != nil {
		return Unresolved, err
	}
	return evalBool(node, r), nil
}

func evalBool(n Node, r Resolver) Outcome {
	switch t := n.(type) {
	case Binary:
		switch t.Op {
		case "&&":
			left := evalBool(t.Left, r)
			if left == False {
				return False
			}
			right := evalBool(t.Right, r)
			if right == False {
				return False
			}
			if left == Unresolved || right == Unresolved {
				return Unresolved
			}
			return True
		case "||":
			left := evalBool(t.Left, r)
			if left == True {
				return True
			}
			right := evalBool(t.Right, r)
			if right == True {
				return True
			}
			if left == Unresolved || right == Unresolved {
				return Unresolved
			}
			return False
		case "==", "!=":
			lv, lok := evalValue(t.Left, r)
			rv, rok := evalValue(t.Right, r)
			if !lok || !rok {
				return Unresolved
			}
			eq := lv.Equal(rv)
			if t.Op == "!=" {
				eq = !eq
			}
			return boolOutcome(eq)
		}
	case Not:
		switch evalBool(t.Operand, r) {
		case True:
			return False
		case False:
			return True
		default:
			return Unresolved
		}
	case Reference, Literal:
		v, ok := evalValue(n, r)
		if !ok {
			return Unresolved
		}
		return boolOutcome(v.Truthy())
	}
	return Unresolved
}

func boolOutcome(b bool) Outcome {
	if b {
		return True
	}
	return False
}

// evalValue resolves a Literal or Reference node to a concrete value;
// ok is false when a Reference cannot be resolved.
func evalValue(n Node, r Resolver) (value.Value, bool) {
	switch t := n.(type) {
	case Literal:
		switch t.Value.kind {
		case "null":
			return value.Null, true
		case "bool":
			return value.Bool(t.Value.b), true
		case "number":
			return value.Number(t.Value.n), true
		case "string":
			return value.String(t.Value.s), true
		}
	case Reference:
		return r.Resolve(t.Path)
	}
	return value.Null, false
}

// CollectReferences returns every dotted reference path appearing in
// expr, in left-to-right order. Used by
// FindUnresolvedReferencesInCondition.
func CollectReferences(n Node) [][]string {
	var out [][]string
	var walk func(Node)
	walk = func(n Node) {
		switch t := n.(type) {
		case Reference:
			out = append(out, t.Path)
		case Not:
			walk(t.Operand)
		case Binary:
			walk(t.Left)
			walk(t.Right)
		}
	}
	walk(n)
	return out
}

// FindUnresolvedReferencesInCondition returns the dotted paths of
// every reference in expr that the resolver cannot resolve — this is
// what lets the executor distinguish "evaluated to false" from
// "could not evaluate" (spec §4.2) independent of the tri-state
// Outcome, e.g. for diagnostic logging.
func FindUnresolvedReferencesInCondition(expr string, r Resolver) ([][]string, error) {
	node, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	var unresolved [][]string
	for _, path := range CollectReferences(node) {
		if _, ok := r.Resolve(path); !ok {
			unresolved = append(unresolved, path)
		}
	}
	return unresolved, nil
}
