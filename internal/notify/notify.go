// Package notify publishes the result of a build run: the CI step summary,
// the pull request comment, optional metrics, and the process exit code.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fyrsmithlabs/pluginbuild/internal/logging"
	"github.com/fyrsmithlabs/pluginbuild/internal/orchestrator"
	"github.com/fyrsmithlabs/pluginbuild/internal/secrets"
	"go.uber.org/zap"
)

const (
	verdictOK     = "All builds OK!"
	verdictFailed = "Builds failed, please check action output."
)

// Commenter posts a comment to an issue or pull request.
type Commenter interface {
	AddComment(ctx context.Context, repo string, number int, body string) error
}

// Pusher publishes run metrics once the loop is done.
type Pusher interface {
	Push(ctx context.Context, state *orchestrator.State) error
}

// Options configures where results are published.
type Options struct {
	SummaryPath string // GITHUB_STEP_SUMMARY; empty disables the summary
	Repo        string // Repository the comment goes to, "owner/name"
	PRNumber    int    // Pull request to comment on; 0 disables the comment
	RunID       string // CI run linked from the comment
	ServerURL   string // e.g. https://github.com
	LinksRepo   string // Repository used for the log and review links
}

// Dispatcher publishes the outcome of a run.
type Dispatcher struct {
	opts      Options
	commenter Commenter
	pusher    Pusher
	scrubber  *secrets.Scrubber
	logger    *logging.Logger
}

// NewDispatcher creates a dispatcher. commenter may be nil when no GitHub
// client is configured.
func NewDispatcher(opts Options, commenter Commenter, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.LinksRepo == "" {
		opts.LinksRepo = opts.Repo
	}
	return &Dispatcher{
		opts:      opts,
		commenter: commenter,
		scrubber:  secrets.MustNew(nil),
		logger:    logger.Named("notify"),
	}
}

// SetScrubber replaces the default secret scrubber applied to everything
// published. nil publishes text unchanged.
func (d *Dispatcher) SetScrubber(s *secrets.Scrubber) {
	d.scrubber = s
}

// SetPusher sets where run metrics are pushed.
func (d *Dispatcher) SetPusher(p Pusher) {
	d.pusher = p
}

// ExitCode returns 1 if the run aborted, any task failed or the loop itself
// returned an error, 0 otherwise.
func ExitCode(state *orchestrator.State, runErr error) int {
	if state == nil || runErr != nil || state.Failed() {
		return 1
	}
	return 0
}

// Finish publishes everything and returns the exit code. Publishing errors
// are logged and returned joined; they never change the exit code.
func (d *Dispatcher) Finish(ctx context.Context, state *orchestrator.State, runErr error) (int, error) {
	code := ExitCode(state, runErr)
	if state == nil {
		return code, runErr
	}

	// AnyFailed is set exactly when a failing row is recorded.
	if rows := state.Report.AnyFailure(); rows != state.AnyFailed {
		d.logger.Error(ctx, "run flags disagree with report rows",
			zap.Bool("any_failed", state.AnyFailed),
			zap.Bool("failing_rows", rows),
		)
	}

	var errs []error

	if runErr != nil {
		d.logger.Error(ctx, "build loop did not complete, skipping comment", zap.Error(runErr))
	} else if err := d.PostComment(ctx, state); err != nil {
		d.logger.Error(ctx, "failed to post comment", zap.Error(err))
		errs = append(errs, err)
	}

	if err := d.WriteSummary(ctx, state); err != nil {
		d.logger.Error(ctx, "failed to write summary", zap.Error(err))
		errs = append(errs, err)
	}

	if d.pusher != nil {
		if err := d.pusher.Push(ctx, state); err != nil {
			d.logger.Warn(ctx, "failed to push metrics", zap.Error(err))
			errs = append(errs, err)
		}
	}

	d.logger.Info(ctx, "run finished",
		zap.Bool("aborted", state.Aborted),
		zap.Bool("any_failed", state.AnyFailed),
		zap.Int("rows", len(state.Report.Rows)),
		zap.Int("exit_code", code),
	)
	return code, errors.Join(errs...)
}

// WriteSummary writes the summary to the configured path. No path is a no-op.
func (d *Dispatcher) WriteSummary(ctx context.Context, state *orchestrator.State) error {
	if d.opts.SummaryPath == "" {
		return nil
	}
	summary := d.scrub(ctx, "summary", state.Report.Summary())
	if err := os.WriteFile(d.opts.SummaryPath, []byte(summary), 0o644); err != nil {
		return fmt.Errorf("write step summary: %w", err)
	}
	return nil
}

// ShouldComment reports whether a comment will be posted for state.
func (d *Dispatcher) ShouldComment(state *orchestrator.State) bool {
	if d.opts.Repo == "" || d.opts.PRNumber <= 0 || d.commenter == nil {
		return false
	}
	return state.Report.Discovered && !state.Report.Empty()
}

// PostComment posts the verdict and results table to the pull request.
func (d *Dispatcher) PostComment(ctx context.Context, state *orchestrator.State) error {
	if !d.ShouldComment(state) {
		return nil
	}
	body := d.scrub(ctx, "comment", d.Comment(state))
	if err := d.commenter.AddComment(ctx, d.opts.Repo, d.opts.PRNumber, body); err != nil {
		return fmt.Errorf("comment on %s#%d: %w", d.opts.Repo, d.opts.PRNumber, err)
	}
	d.logger.Info(ctx, "posted build comment",
		zap.String("repo", d.opts.Repo),
		zap.Int("pr", d.opts.PRNumber),
	)
	return nil
}

// Comment renders the pull request comment body.
func (d *Dispatcher) Comment(state *orchestrator.State) string {
	verdict := verdictOK
	if state.AnyFailed {
		verdict = verdictFailed
	}
	return verdict + "\n\n" + state.Report.ResultsTable() + d.links()
}

func (d *Dispatcher) links() string {
	base := d.opts.ServerURL + "/" + d.opts.LinksRepo
	return fmt.Sprintf("\n\n##### [Show log](%s/actions/runs/%s) - [Review](%s/pull/%d/files#submit-review)",
		base, d.opts.RunID, base, d.opts.PRNumber)
}

// scrub redacts secrets from text about to leave the runner.
func (d *Dispatcher) scrub(ctx context.Context, what, text string) string {
	res := d.scrubber.Scrub(text)
	if res.Found() {
		d.logger.Warn(ctx, "redacted secrets from "+what, zap.Strings("rules", res.RuleIDs()))
	}
	return res.Text
}
