package pipeline

import (
	"context"
	"fmt"
)

// Progress checkpoints reported by the engine.
const (
	CheckpointAccepted  = 5
	CheckpointSearch    = 20
	CheckpointExtract   = 45
	CheckpointSummarize = 80
	CheckpointFormat    = 100
)

// StepFunc transforms the run state using the run's tools.
type StepFunc func(ctx context.Context, state *State, tools *Toolset) Outcome

// Step is one named stage of a plan.
type Step struct {
	Name       string
	Checkpoint int
	Run        StepFunc
}

var (
	searchStep    = Step{Name: "search", Checkpoint: CheckpointSearch, Run: SearchStep}
	extractStep   = Step{Name: "extract", Checkpoint: CheckpointExtract, Run: ExtractStep}
	summarizeStep = Step{Name: "summarize", Checkpoint: CheckpointSummarize, Run: SummarizeStep}
	formatStep    = Step{Name: "format", Checkpoint: CheckpointFormat, Run: FormatStep}
)

// Plan is the fixed step sequence for a path. It is chosen once per run.
type Plan struct {
	path  Path
	steps []Step
}

var plans = map[Path]Plan{
	PathSimple:  {path: PathSimple, steps: []Step{searchStep, summarizeStep, formatStep}},
	PathComplex: {path: PathComplex, steps: []Step{searchStep, extractStep, summarizeStep, formatStep}},
}

// PlanFor returns the plan for path.
func PlanFor(path Path) (Plan, error) {
	plan, ok := plans[path]
	if !ok {
		return Plan{}, fmt.Errorf("unknown pipeline path: %q", path)
	}
	return plan, nil
}

func (p Plan) Path() Path { return p.path }

// Steps returns a copy of the ordered steps.
func (p Plan) Steps() []Step {
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// StepNames lists the step names in order.
func (p Plan) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name
	}
	return names
}
