package engine

import "fmt"

// OutcomeStatus is the result of one action on one candidate.
type OutcomeStatus int

const (
	Applied OutcomeStatus = iota
	Simulated
	Failed
)

func (s OutcomeStatus) String() string {
	switch s {
	case Applied:
		return "applied"
	case Simulated:
		return "simulated"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("OutcomeStatus(%d)", int(s))
}

// ActionOutcome is produced once per candidate and never changed afterwards.
type ActionOutcome struct {
	ID      string
	Kind    string
	Action  ActionKind
	Status  OutcomeStatus
	Reason  string
	Message string
	Ref     string
	Details map[string]string
	// Err is an *ItemError when Status is Failed.
	Err error
}

// Phase tracks how far a run progressed.
type Phase int

const (
	PhaseListing Phase = iota
	PhaseFiltering
	PhaseExecuting
	PhaseSummarizing
	PhaseDone
	PhaseFatal
)

func (p Phase) String() string {
	switch p {
	case PhaseListing:
		return "listing"
	case PhaseFiltering:
		return "filtering"
	case PhaseExecuting:
		return "executing"
	case PhaseSummarizing:
		return "summarizing"
	case PhaseDone:
		return "done"
	case PhaseFatal:
		return "fatal"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

type RunStatus int

const (
	StatusNothingToDo RunStatus = iota
	StatusSucceeded
	StatusPartialFailure
	StatusFatal
)

func (s RunStatus) String() string {
	switch s {
	case StatusNothingToDo:
		return "nothing-to-do"
	case StatusSucceeded:
		return "succeeded"
	case StatusPartialFailure:
		return "partial-failure"
	case StatusFatal:
		return "fatal"
	}
	return fmt.Sprintf("RunStatus(%d)", int(s))
}

// Skip records a listed resource that was not a candidate.
type Skip struct {
	ID     string
	Reason string
}

// BatchSummary aggregates one run. Listed = candidates + Skipped, and
// candidates = Applied + Simulated + Failed.
type BatchSummary struct {
	Job    string
	DryRun bool

	Listed    int
	Applied   int
	Simulated int
	Failed    int
	Skipped   int

	Outcomes []ActionOutcome
	Skips    []Skip

	Phase  Phase
	Status RunStatus
}

// Candidates is the number of records that produced an outcome.
func (s *BatchSummary) Candidates() int {
	return s.Applied + s.Simulated + s.Failed
}

func (s *BatchSummary) skip(id, reason string) {
	s.Skipped++
	s.Skips = append(s.Skips, Skip{ID: id, Reason: reason})
}

func (s *BatchSummary) record(o ActionOutcome) {
	switch o.Status {
	case Applied:
		s.Applied++
	case Simulated:
		s.Simulated++
	case Failed:
		s.Failed++
	}
	s.Outcomes = append(s.Outcomes, o)
}

func (s *BatchSummary) settle() {
	switch {
	case s.Phase == PhaseFatal:
		s.Status = StatusFatal
	case s.Candidates() == 0:
		s.Status = StatusNothingToDo
	case s.Failed > 0:
		s.Status = StatusPartialFailure
	default:
		s.Status = StatusSucceeded
	}
}

// Err returns ErrPartialResult when strict is set and any item failed.
func (s *BatchSummary) Err(strict bool) error {
	if s == nil || !strict || s.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d", ErrPartialResult, s.Failed, s.Candidates())
}

// Merge concatenates the summaries of consecutive runs into one named job.
// Nil parts are ignored.
func Merge(job string, parts ...*BatchSummary) *BatchSummary {
	out := &BatchSummary{Job: job, Phase: PhaseDone}
	for _, p := range parts {
		if p == nil {
			continue
		}
		out.DryRun = out.DryRun || p.DryRun
		out.Listed += p.Listed
		out.Applied += p.Applied
		out.Simulated += p.Simulated
		out.Failed += p.Failed
		out.Skipped += p.Skipped
		out.Outcomes = append(out.Outcomes, p.Outcomes...)
		out.Skips = append(out.Skips, p.Skips...)
		if p.Phase == PhaseFatal {
			out.Phase = PhaseFatal
		}
	}
	out.settle()
	return out
}

// ExitCode maps a run result to the process exit status. Fatal listing and
// configuration errors exit 1; item failures only do under strict.
func ExitCode(s *BatchSummary, err error, strict bool) int {
	if err != nil {
		return 1
	}
	if s.Err(strict) != nil {
		return 1
	}
	return 0
}
