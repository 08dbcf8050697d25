package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fyrsmithlabs/pluginbuild/internal/build"
)

// ErrInvalidPlan is returned for plan files that cannot be used.
var ErrInvalidPlan = errors.New("invalid plan")

// planFile is the on-disk layout of a plan:
//
//	[[task]]
//	internal_name = "SamplePlugin"
//	channel = "stable"
//	commit = "0123abcd"
//	owners = ["alice"]
//	have_version = "1.0.0.0"
//	have_time_built = 2024-05-01T10:00:00Z
type planFile struct {
	Tasks []build.Task `toml:"task"`
}

// LoadPlan reads the task list from a TOML plan file.
func LoadPlan(path string) ([]build.Task, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}

	var plan planFile
	meta, err := toml.DecodeFile(path, &plan)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPlan, path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%w: %s: unknown keys: %s", ErrInvalidPlan, path, strings.Join(keys, ", "))
	}

	seen := make(map[string]bool, len(plan.Tasks))
	for i, task := range plan.Tasks {
		if task.InternalName == "" {
			return nil, fmt.Errorf("%w: %s: task %d has no internal_name", ErrInvalidPlan, path, i)
		}
		label := task.Label()
		if seen[label] {
			return nil, fmt.Errorf("%w: %s: duplicate task %s", ErrInvalidPlan, path, label)
		}
		seen[label] = true
	}

	return plan.Tasks, nil
}

// Planned serves the task list from a plan file and everything else from
// the wrapped engine.
type Planned struct {
	build.Engine
	path string
}

// WithPlan wraps e so Tasks reads path. An empty path returns e unchanged.
func WithPlan(e build.Engine, path string) build.Engine {
	if path == "" {
		return e
	}
	return &Planned{Engine: e, path: path}
}

// Tasks loads the plan file.
func (p *Planned) Tasks(ctx context.Context) ([]build.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadPlan(p.path)
}
