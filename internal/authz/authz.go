// Package authz decides whether the actor that triggered a run may build a task.
package authz

import (
	"time"

	"github.com/fyrsmithlabs/pluginbuild/internal/build"
)

// Decision is the outcome of an authorization check.
type Decision string

const (
	// Authorized means the task may run
	Authorized Decision = "authorized"

	// NotOwned means the actor is not among the task owners
	NotOwned Decision = "not_owned"
)

// Decide returns Authorized when buildAll is set or actor owns task.
func Decide(task build.Task, actor string, buildAll bool) Decision {
	if buildAll || task.OwnedBy(actor) {
		return Authorized
	}
	return NotOwned
}

// ShouldReport reports whether a NotOwned rejection gets a visible row.
//
// A task that was never built is skipped silently. A task last built at or
// before now points at a misconfigured owner list and is reported. A build
// time in the future suppresses the row.
func ShouldReport(task build.Task, now time.Time) bool {
	return task.HaveTimeBuilt != nil && !task.HaveTimeBuilt.After(now)
}
