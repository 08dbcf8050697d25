package notify

import (
	"fmt"
	"io"
)

// Groups writes GitHub Actions workflow commands that fold log output.
// An inactive Groups writes nothing.
type Groups struct {
	w      io.Writer
	active bool
}

// NewGroups creates a group writer; active is normally the CI flag.
func NewGroups(w io.Writer, active bool) *Groups {
	return &Groups{w: w, active: active}
}

// StartGroup opens a named group.
func (g *Groups) StartGroup(name string) {
	if g.active {
		fmt.Fprintf(g.w, "::group::%s\n", name)
	}
}

// EndGroup closes the current group.
func (g *Groups) EndGroup() {
	if g.active {
		fmt.Fprintln(g.w, "::endgroup::")
	}
}
