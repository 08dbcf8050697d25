package orchestrator

import (
	"testing"

	"github.com/fyrsmithlabs/pluginbuild/internal/authz"
	"github.com/fyrsmithlabs/pluginbuild/internal/build"
	"github.com/fyrsmithlabs/pluginbuild/internal/report"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestState_AdmitAndRecord(t *testing.T) {
	s := NewState()
	task := ownedTask("A")

	assert.Equal(t, StepExecute, s.Admit(task, authz.Authorized, fixedNow))
	assert.Empty(t, s.Report.Rows)

	row := s.Record(task, build.Result{Kind: build.ResultConsistency, Message: "boom"})
	assert.Equal(t, report.StatusCommitFailed, row.Status)
	assert.True(t, s.Aborted)
	assert.True(t, s.AnyFailed)

	assert.Equal(t, StepNotRan, s.Admit(ownedTask("B"), authz.Authorized, fixedNow))
	assert.Equal(t, report.StatusNotRan, s.Report.Rows[1].Status)

	assert.Equal(t, StepNotOwned, s.Admit(ownedTask("C"), authz.NotOwned, fixedNow))
	assert.Len(t, s.Report.Rows, 2)
}

func TestState_Begin(t *testing.T) {
	s := NewState()
	images := []build.Image{{Tags: []string{"plogon:latest"}}}
	s.Begin(4, images)

	assert.Equal(t, 4, s.Report.TaskCount)
	assert.Equal(t, images, s.Report.Images)
	assert.False(t, s.Report.Empty())
}

// taskEvent is one generated task: whether it is owned and what the engine returns.
type taskEvent struct {
	Owned bool
	Kind  build.ResultKind
}

func genEvent() gopter.Gen {
	return gopter.CombineGens(
		gen.Bool(),
		gen.OneConstOf(
			build.ResultSuccess,
			build.ResultSameVersion,
			build.ResultFailure,
			build.ResultUnexpected,
			build.ResultConsistency,
		),
	).Map(func(v []interface{}) taskEvent {
		return taskEvent{Owned: v[0].(bool), Kind: v[1].(build.ResultKind)}
	})
}

func TestState_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("flags are monotonic and not ran follows abort", prop.ForAll(
		func(events []taskEvent) bool {
			s := NewState()
			aborted, failed := false, false

			for _, ev := range events {
				task := ownedTask("T")
				task.HaveTimeBuilt = timePtr(fixedNow)
				decision := authz.NotOwned
				if ev.Owned {
					decision = authz.Authorized
				}

				rowsBefore := len(s.Report.Rows)
				step := s.Admit(task, decision, fixedNow)

				switch {
				case !ev.Owned:
					if step != StepNotOwned || s.Report.Rows[rowsBefore].Status != report.StatusNotOwned {
						return false
					}
				case aborted:
					if step != StepNotRan || s.Report.Rows[rowsBefore].Status != report.StatusNotRan {
						return false
					}
				default:
					if step != StepExecute {
						return false
					}
					s.Record(task, build.Result{Kind: ev.Kind})
				}

				if (aborted && !s.Aborted) || (failed && !s.AnyFailed) {
					return false
				}
				aborted, failed = s.Aborted, s.AnyFailed
			}

			return s.AnyFailed == s.Report.AnyFailure()
		},
		gen.SliceOf(genEvent()),
	))

	properties.Property("one row per task when every rejection is reportable", prop.ForAll(
		func(events []taskEvent) bool {
			s := NewState()
			for _, ev := range events {
				task := ownedTask("T")
				task.HaveTimeBuilt = timePtr(fixedNow)
				decision := authz.NotOwned
				if ev.Owned {
					decision = authz.Authorized
				}
				if s.Admit(task, decision, fixedNow) == StepExecute {
					s.Record(task, build.Result{Kind: ev.Kind})
				}
			}
			return len(s.Report.Rows) == len(events)
		},
		gen.SliceOf(genEvent()),
	))

	properties.TestingRun(t)
}
