package pipeline

import "fmt"

// OutcomeKind tells the engine how to proceed after a step.
type OutcomeKind int

const (
	// OutcomeOK means the step finished and the run continues.
	OutcomeOK OutcomeKind = iota
	// OutcomeSoftFailure means some items were skipped but the run continues.
	OutcomeSoftFailure
	// OutcomeFatal aborts the run.
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeSoftFailure:
		return "soft_failure"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Skipped records an item a step gave up on without failing the run.
type Skipped struct {
	Item string
	Err  error
}

// Outcome is the result of running one step.
type Outcome struct {
	kind    OutcomeKind
	state   *State
	skipped []Skipped
	err     error
}

// OK reports a step that completed.
func OK(state *State) Outcome {
	return Outcome{kind: OutcomeOK, state: state}
}

// SoftFailure reports a step that completed after skipping items.
// With nothing skipped it is the same as OK.
func SoftFailure(state *State, skipped ...Skipped) Outcome {
	if len(skipped) == 0 {
		return OK(state)
	}
	return Outcome{kind: OutcomeSoftFailure, state: state, skipped: skipped}
}

// Fatal reports a step failure that must abort the run.
func Fatal(err error) Outcome {
	if err == nil {
		err = fmt.Errorf("step failed without an error")
	}
	return Outcome{kind: OutcomeFatal, err: err}
}

func (o Outcome) Kind() OutcomeKind { return o.kind }

// State is nil for fatal outcomes.
func (o Outcome) State() *State { return o.state }

func (o Outcome) Skipped() []Skipped { return o.skipped }

func (o Outcome) Err() error { return o.err }

func (o Outcome) IsFatal() bool { return o.kind == OutcomeFatal }
