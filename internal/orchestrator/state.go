package orchestrator

import (
	"time"

	"github.com/fyrsmithlabs/pluginbuild/internal/authz"
	"github.com/fyrsmithlabs/pluginbuild/internal/build"
	"github.com/fyrsmithlabs/pluginbuild/internal/report"
)

// Step is what the loop decided to do with a task.
type Step string

const (
	// StepNotOwned skips a task the actor does not own
	StepNotOwned Step = "not_owned"

	// StepNotRan skips a task because the run was aborted
	StepNotRan Step = "not_ran"

	// StepExecute hands the task to the build engine
	StepExecute Step = "execute"
)

// State is the mutable state of a single run.
//
// Aborted and AnyFailed only ever go from false to true.
type State struct {
	Aborted   bool          `json:"aborted"`
	AnyFailed bool          `json:"any_failed"`
	Report    report.Report `json:"report"`
}

// NewState creates the state for a new run.
func NewState() *State {
	return &State{}
}

// Begin records how many tasks the run discovered and the images it uses.
// images may be nil and set later through Report.SetImages.
func (s *State) Begin(taskCount int, images []build.Image) {
	s.Report.Discover(taskCount)
	s.Report.SetImages(images)
}

// Admit decides whether task runs, appending a row when it is skipped.
func (s *State) Admit(task build.Task, decision authz.Decision, now time.Time) Step {
	if decision == authz.NotOwned {
		if authz.ShouldReport(task, now) {
			s.Report.Add(report.NotOwnedRow(task))
		}
		return StepNotOwned
	}

	if s.Aborted {
		s.Report.Add(report.NotRanRow(task))
		return StepNotRan
	}

	return StepExecute
}

// Record appends the row for an executed task and updates the flags.
func (s *State) Record(task build.Task, res build.Result) report.Row {
	row := report.ResultRow(task, res)
	s.Report.Add(row)

	if row.Status.Failure() {
		s.AnyFailed = true
	}
	if res.Aborts() {
		s.Aborted = true
	}
	return row
}

// Failed reports whether the run verdict is failure.
func (s *State) Failed() bool {
	return s.Aborted || s.AnyFailed
}
