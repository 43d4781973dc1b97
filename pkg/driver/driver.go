// Package driver converts a synchronous workflow run into a
// cooperative async task: it streams lifecycle events on an unbounded
// producer channel and accepts Pause/Resume/Cancel control messages on
// a separate consumer channel (spec §4.8).
package driver

import (
	"context"
	"log/slog"
	"time"

	"github.com/oattyio/oatty/pkg/runctx"
	"github.com/oattyio/oatty/pkg/workflow"
)

// RunStatus is the driver's externally visible run state.
type RunStatus string

const (
	RunRunning         RunStatus = "running"
	RunPaused          RunStatus = "paused"
	RunCancelRequested RunStatus = "cancel_requested"
	RunCanceled        RunStatus = "canceled"
	RunSucceeded       RunStatus = "succeeded"
	RunFailed          RunStatus = "failed"
)

// ControlMessage is one of Pause, Resume, Cancel.
type ControlMessage int

const (
	Pause ControlMessage = iota
	Resume
	Cancel
)

// Event is the tagged union of lifecycle events the driver emits.
// Exactly one of the typed payload fields is populated per Kind.
type Event struct {
	Kind EventKind

	RunStarted            *RunStartedPayload
	RunStatusChanged       *RunStatusChangedPayload
	StepStarted            *StepStartedPayload
	StepFinished           *StepFinishedPayload
	RunOutputAccumulated   *RunOutputAccumulatedPayload
	RunCompleted           *RunCompletedPayload
}

type EventKind int

const (
	EventRunStarted EventKind = iota
	EventRunStatusChanged
	EventStepStarted
	EventStepFinished
	EventRunOutputAccumulated
	EventRunCompleted
)

type RunStartedPayload struct {
	At time.Time
}

type RunStatusChangedPayload struct {
	Status  RunStatus
	Message string
}

type StepStartedPayload struct {
	Index     int
	StepID    string
	Label     string
	StartedAt time.Time
}

type StepFinishedPayload struct {
	StepID     string
	Status     workflow.StepStatus
	Output     any
	Logs       []string
	Attempts   uint
	DurationMs int64
}

type RunOutputAccumulatedPayload struct {
	Key    string
	Value  any
	Detail string
}

type RunCompletedPayload struct {
	Status     RunStatus
	FinishedAt time.Time
	Error      string
}

// ControlState tracks the two cooperative flags the driver checks at
// every suspension point.
type ControlState struct {
	paused          bool
	cancelRequested bool
}

// CommandResolver is an alias of workflow.CommandResolver, so callers
// of this package can name the resolver type without importing
// pkg/workflow themselves.
type CommandResolver = workflow.CommandResolver

// Driver runs one WorkflowSpec asynchronously.
type Driver struct {
	Steps    *workflow.StepExecutor
	Commands CommandResolver
	Logger   *slog.Logger

	events  chan Event
	control chan ControlMessage
	state   ControlState
}

// New constructs a Driver with an unbounded-in-practice event buffer
// (sized generously so a slow consumer doesn't stall the run loop) and
// a small control buffer.
func New(steps *workflow.StepExecutor, commands CommandResolver, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		Steps:    steps,
		Commands: commands,
		Logger:   logger,
		events:   make(chan Event, 256),
		control:  make(chan ControlMessage, 8),
	}
}

// Events returns the read-only event stream.
func (d *Driver) Events() <-chan Event { return d.events }

// Send delivers a control message; it never blocks callers for long
// since the control channel is buffered, but a full buffer (an
// operator hammering the control endpoint) will block briefly.
func (d *Driver) Send(msg ControlMessage) {
	d.control <- msg
}

// Run executes spec against rc, emitting events until completion,
// cancellation, or ctx's own cancellation. The events channel is
// closed when Run returns.
func (d *Driver) Run(ctx context.Context, spec workflow.WorkflowSpec, rc *runctx.RunContext) {
	defer close(d.events)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	if !d.emit(Event{Kind: EventRunStarted, RunStarted: &RunStartedPayload{At: time.Now()}}) {
		return
	}
	if !d.setStatus(RunRunning, "") {
		return
	}

	ordered, err := workflow.Topology(spec)
	if err != nil {
		d.completeWith(RunFailed, err.Error())
		return
	}

	statusByID := make(map[string]workflow.StepStatus, len(ordered))
	var failed int

	for i, step := range ordered {
		if d.drainControl(&cancelRun, runCtx) {
			return
		}
		if d.state.paused {
			if d.awaitResume(&cancelRun, runCtx) {
				return
			}
		}

		if depResult, skip := d.gateOnDependencies(step, statusByID); skip {
			statusByID[step.ID] = depResult.Status
			continue
		}

		cmdSpec, ok := d.Commands.Resolve(step.Run)
		start := time.Now()
		if !d.emit(Event{Kind: EventStepStarted, StepStarted: &StepStartedPayload{Index: i, StepID: step.ID, StartedAt: start}}) {
			return
		}

		var res workflow.StepResult
		if !ok {
			res = workflow.StepResult{ID: step.ID, Status: workflow.StepFailed, Logs: []string{"unknown command: " + step.Run}}
		} else {
			res = d.Steps.Execute(runCtx, step, cmdSpec, rc)
		}
		statusByID[step.ID] = res.Status
		if res.Status == workflow.StepFailed {
			failed++
		}
		if res.Status == workflow.StepSucceeded && step.Repeat == nil {
			rc.SetStepOutput(step.ID, res.Output)
		}

		duration := time.Since(start).Milliseconds()
		if !d.emit(Event{Kind: EventStepFinished, StepFinished: &StepFinishedPayload{
			StepID: step.ID, Status: res.Status, Output: res.Output.ToAny(), Logs: res.Logs, Attempts: res.Attempts, DurationMs: duration,
		}}) {
			return
		}
		if res.Status == workflow.StepSucceeded {
			if !d.emit(Event{Kind: EventRunOutputAccumulated, RunOutputAccumulated: &RunOutputAccumulatedPayload{
				Key: step.ID, Value: res.Output.ToAny(),
			}}) {
				return
			}
		}

		if d.drainControl(&cancelRun, runCtx) {
			return
		}
		if d.state.paused {
			if d.awaitResume(&cancelRun, runCtx) {
				return
			}
		}
	}

	if failed > 0 {
		d.completeWith(RunFailed, "")
	} else {
		d.completeWith(RunSucceeded, "")
	}
}

// drainControl non-blockingly drains pending control messages,
// updating d.state. It returns true if the run has been canceled and
// the caller must stop immediately (cancel takes precedence over
// pause).
func (d *Driver) drainControl(cancelRun *context.CancelFunc, runCtx context.Context) bool {
	for {
		select {
		case msg := <-d.control:
			if d.applyControl(msg, cancelRun) {
				return true
			}
		default:
			return d.maybeExitOnCancel()
		}
	}
}

// awaitResume blocks on the control channel while paused, honoring
// cancellation either via a control message or via the parent
// context.
func (d *Driver) awaitResume(cancelRun *context.CancelFunc, runCtx context.Context) bool {
	for d.state.paused && !d.state.cancelRequested {
		select {
		case msg := <-d.control:
			if d.applyControl(msg, cancelRun) {
				return true
			}
		case <-runCtx.Done():
			d.state.cancelRequested = true
		}
	}
	return d.maybeExitOnCancel()
}

func (d *Driver) applyControl(msg ControlMessage, cancelRun *context.CancelFunc) bool {
	switch msg {
	case Pause:
		if !d.state.paused {
			d.state.paused = true
			d.setStatus(RunPaused, "")
		}
	case Resume:
		if d.state.paused {
			d.state.paused = false
			d.setStatus(RunRunning, "")
		}
	case Cancel:
		if !d.state.cancelRequested {
			d.state.cancelRequested = true
			d.setStatus(RunCancelRequested, "")
			(*cancelRun)()
		}
	}
	return d.maybeExitOnCancel()
}

func (d *Driver) maybeExitOnCancel() bool {
	if !d.state.cancelRequested {
		return false
	}
	d.completeWith(RunCanceled, "")
	return true
}

func (d *Driver) gateOnDependencies(step workflow.StepSpec, statusByID map[string]workflow.StepStatus) (workflow.StepResult, bool) {
	for _, dep := range step.DependsOn {
		status, ok := statusByID[dep]
		if !ok || status != workflow.StepSucceeded {
			return workflow.StepResult{ID: step.ID, Status: workflow.StepSkipped}, true
		}
	}
	return workflow.StepResult{}, false
}

func (d *Driver) setStatus(status RunStatus, message string) bool {
	return d.emit(Event{Kind: EventRunStatusChanged, RunStatusChanged: &RunStatusChangedPayload{Status: status, Message: message}})
}

func (d *Driver) completeWith(status RunStatus, errMsg string) {
	d.setStatus(status, "")
	d.emit(Event{Kind: EventRunCompleted, RunCompleted: &RunCompletedPayload{Status: status, FinishedAt: time.Now(), Error: errMsg}})
}

// emit sends ev on the event channel, returning false (and logging at
// debug level) if the receiver has gone away — per spec §4.8 the
// driver exits silently rather than panicking or blocking forever.
func (d *Driver) emit(ev Event) bool {
	select {
	case d.events <- ev:
		return true
	default:
		// Buffer full: block briefly, but give up if nobody drains it.
		select {
		case d.events <- ev:
			return true
		case <-time.After(5 * time.Second):
			d.Logger.Debug("driver: event receiver appears gone, exiting run loop")
			return false
		}
	}
}
