// Package report aggregates per-task rows into the markdown build summary.
//
// Rendering is derived from the stored rows and images only, so calling
// any of the render methods repeatedly yields identical output.
package report

import (
	"strings"

	"github.com/fyrsmithlabs/pluginbuild/internal/build"
)

const (
	summaryHeading = "## Build Summary\n"
	noTasksNotice  = "\nNo tasks were detected, if you didn't change any manifests, this is intended."
	resultsHeading = "### Build Results\n"
	imagesHeading  = "### Images used\n"

	// createdLayout matches a long date such as "Wednesday, May 1, 2024".
	createdLayout = "Monday, January 2, 2006"
)

// Report is the append-only record of a run.
type Report struct {
	// Discovered is set once the task list is known. Before that the
	// summary is just the heading.
	Discovered bool          `json:"discovered"`
	TaskCount  int           `json:"task_count"`
	Rows       []Row         `json:"rows"`
	Images     []build.Image `json:"images"`
}

// Add appends a row.
func (r *Report) Add(row Row) {
	r.Rows = append(r.Rows, row)
}

// SetImages records the images used for the run.
func (r *Report) SetImages(images []build.Image) {
	r.Images = images
}

// Discover records that the run found taskCount tasks.
func (r *Report) Discover(taskCount int) {
	r.Discovered = true
	r.TaskCount = taskCount
}

// Empty reports whether discovery completed and found no tasks.
func (r *Report) Empty() bool {
	return r.Discovered && r.TaskCount == 0
}

// AnyFailure reports whether any row fails the run.
func (r *Report) AnyFailure() bool {
	for _, row := range r.Rows {
		if row.Status.Failure() {
			return true
		}
	}
	return false
}

// ResultsTable renders the build results table.
func (r *Report) ResultsTable() string {
	t := NewTable(" ", "Name", "Commit", "Status")
	for _, row := range r.Rows {
		t.AddRow(row.Status.Glyph(), row.Label, row.Commit, row.Message)
	}
	return t.String()
}

// ImagesTable renders the images table.
func (r *Report) ImagesTable() string {
	t := NewTable("Tags", "Created")
	for _, img := range r.Images {
		t.AddRow(strings.Join(img.Tags, ","), img.Created.Format(createdLayout))
	}
	return t.String()
}

// Summary renders the full text written to the CI summary sink.
func (r *Report) Summary() string {
	var b strings.Builder
	b.WriteString(summaryHeading)

	if !r.Discovered {
		return b.String()
	}
	if r.Empty() {
		b.WriteString(noTasksNotice)
		return b.String()
	}

	b.WriteString(resultsHeading)
	b.WriteString(r.ResultsTable())
	b.WriteString(imagesHeading)
	b.WriteString(r.ImagesTable())
	return b.String()
}
