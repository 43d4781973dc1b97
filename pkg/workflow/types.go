// Package workflow implements the step executor (§4.6) and workflow
// executor (§4.7): topological step ordering, dependency/condition/
// template gating, repeat-until polling, and run-level aggregation.
package workflow

import (
	"time"

	"github.com/oattyio/oatty/pkg/value"
)

// StepStatus is the terminal classification of a single step
// execution.
type StepStatus string

const (
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// RepeatSpec configures a step's repeat-until polling behavior.
type RepeatSpec struct {
	// Every is the poll interval, authored as "<N>s" or "<N>m"; an
	// unparseable value defaults to 1 second (spec §4.6).
	Every string

	// Until is a condition-language expression evaluated against the
	// context after each attempt, with the latest output already
	// written to ctx.steps[id].
	Until string
}

// StepSpec is an authored workflow step (spec §3).
type StepSpec struct {
	ID             string
	Run            string
	DependsOn      []string
	With           value.Value // optional ordered mapping; Null if absent
	Body           value.Value // optional JSON tree; Null if absent
	If             string      // optional predicate; "" means unconditional
	Repeat         *RepeatSpec
	OutputContract []string
}

// WorkflowSpec is an identified, ordered set of steps; input
// definitions are not part of it.
// Invariants: step ids unique, every depends_on references an
// existing id, no cycles (validated by Topology).
type WorkflowSpec struct {
	ID    string
	Steps []StepSpec
}

// StepResult is the outcome of executing a single step.
type StepResult struct {
	ID       string
	Status   StepStatus
	Output   value.Value
	Logs     []string
	Attempts uint
}

// WorkflowResult aggregates every step's outcome for one run.
type WorkflowResult struct {
	Status    StepStatus // Succeeded unless any step Failed
	Steps     []StepResult
	Succeeded int
	Failed    int
	Skipped   int
}

// repeatGuard bounds repeat-mode attempts to avert an infinitely
// polling step (spec §4.6).
const repeatGuard = 100

// defaultRepeatInterval is used when `every` fails to parse.
const defaultRepeatInterval = time.Second
