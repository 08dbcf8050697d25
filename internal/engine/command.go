// Package engine adapts an external build engine executable to build.Engine.
//
// The executable speaks JSON over stdio:
//
//	<cmd> tasks   prints a JSON array of tasks
//	<cmd> images  prints a JSON array of images
//	<cmd> build   reads {"task":...,"commit":bool,"changelog":"..."} on stdin
//	              and prints an outcome
//
// Exit status 3 from build means the plugin repository may be left partially
// committed; any other non-zero status is an ordinary engine error.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/fyrsmithlabs/pluginbuild/internal/build"
	"github.com/fyrsmithlabs/pluginbuild/internal/logging"
	"go.uber.org/zap"
)

// ExitRepoConsistency is the exit status signalling a consistency failure.
const ExitRepoConsistency = 3

// ErrNoCommand is returned when no engine executable is configured.
var ErrNoCommand = errors.New("engine command not configured")

// stderrTail caps how much engine stderr ends up in error messages.
const stderrTail = 2048

// CommandOptions configures the engine executable.
type CommandOptions struct {
	Path string
	Args []string // Passed before the subcommand
	Dir  string
	Env  []string // Appended to the current environment

	// Stderr receives the engine's stderr as it runs. Defaults to os.Stderr.
	Stderr io.Writer
}

// Command runs an external engine executable.
type Command struct {
	opts   CommandOptions
	logger *logging.Logger
}

// buildRequest is written to the engine's stdin for "build".
type buildRequest struct {
	Task      build.Task `json:"task"`
	Commit    bool       `json:"commit"`
	Changelog string     `json:"changelog"`
}

// NewCommand creates an engine backed by the executable in opts.
func NewCommand(opts CommandOptions, logger *logging.Logger) (*Command, error) {
	if opts.Path == "" {
		return nil, ErrNoCommand
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Command{opts: opts, logger: logger.Named("engine")}, nil
}

// Tasks asks the engine for the tasks of this run.
func (c *Command) Tasks(ctx context.Context) ([]build.Task, error) {
	out, err := c.run(ctx, "tasks", nil)
	if err != nil {
		return nil, err
	}

	var tasks []build.Task
	if err := json.Unmarshal(out, &tasks); err != nil {
		return nil, fmt.Errorf("engine tasks: failed to decode output: %w", err)
	}
	return tasks, nil
}

// Images asks the engine to provision the build images.
func (c *Command) Images(ctx context.Context) ([]build.Image, error) {
	out, err := c.run(ctx, "images", nil)
	if err != nil {
		return nil, err
	}

	var images []build.Image
	if err := json.Unmarshal(out, &images); err != nil {
		return nil, fmt.Errorf("engine images: failed to decode output: %w", err)
	}
	return images, nil
}

// Build builds one task.
func (c *Command) Build(ctx context.Context, task build.Task, commit bool, changelog string) (build.Outcome, error) {
	in, err := json.Marshal(buildRequest{Task: task, Commit: commit, Changelog: changelog})
	if err != nil {
		return build.Outcome{}, fmt.Errorf("engine build: failed to encode request: %w", err)
	}

	out, err := c.run(ctx, "build", in)
	if err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) && exitErr.code == ExitRepoConsistency {
			return build.Outcome{}, build.NewCommitError(task.InternalName, exitErr)
		}
		return build.Outcome{}, err
	}

	var outcome build.Outcome
	if err := json.Unmarshal(out, &outcome); err != nil {
		return build.Outcome{}, fmt.Errorf("engine build: failed to decode outcome: %w", err)
	}
	return outcome, nil
}

// exitError is a non-zero engine exit with the tail of its stderr.
type exitError struct {
	sub    string
	code   int
	stderr string
}

func (e *exitError) Error() string {
	if e.stderr == "" {
		return fmt.Sprintf("engine %s exited with status %d", e.sub, e.code)
	}
	return fmt.Sprintf("engine %s exited with status %d: %s", e.sub, e.code, e.stderr)
}

func (c *Command) run(ctx context.Context, sub string, stdin []byte) ([]byte, error) {
	args := append(append([]string{}, c.opts.Args...), sub)
	cmd := exec.CommandContext(ctx, c.opts.Path, args...)
	cmd.Dir = c.opts.Dir
	if len(c.opts.Env) > 0 {
		cmd.Env = append(os.Environ(), c.opts.Env...)
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout bytes.Buffer
	tail := &tailBuffer{max: stderrTail}
	cmd.Stdout = &stdout
	cmd.Stderr = io.MultiWriter(c.opts.Stderr, tail)

	c.logger.Debug(ctx, "running engine", zap.String("path", c.opts.Path), zap.Strings("args", args))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("engine %s: %w", sub, ctx.Err())
		}
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, &exitError{sub: sub, code: ee.ExitCode(), stderr: strings.TrimSpace(tail.String())}
		}
		return nil, fmt.Errorf("engine %s: %w", sub, err)
	}
	return stdout.Bytes(), nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
