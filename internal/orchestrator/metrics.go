package orchestrator

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fyrsmithlabs/pluginbuild/internal/orchestrator"

var (
	taskCounter      metric.Int64Counter
	taskDuration     metric.Float64Histogram
	abortCounter     metric.Int64Counter
	changelogCounter metric.Int64Counter
)

// initMetrics creates the loop instruments on the global meter provider.
func initMetrics() {
	meter := otel.Meter(instrumentationName)

	var err error

	taskCounter, err = meter.Int64Counter(
		"pluginbuild.tasks",
		metric.WithDescription("Tasks visited by the build loop, by report status"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create task counter: %v", err))
	}

	taskDuration, err = meter.Float64Histogram(
		"pluginbuild.task.duration",
		metric.WithDescription("Duration of build engine invocations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create task duration: %v", err))
	}

	abortCounter, err = meter.Int64Counter(
		"pluginbuild.run.aborts",
		metric.WithDescription("Runs aborted by a repository consistency failure"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create abort counter: %v", err))
	}

	changelogCounter, err = meter.Int64Counter(
		"pluginbuild.changelog.lookups",
		metric.WithDescription("Changelogs resolved from the pull request body"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create changelog counter: %v", err))
	}
}

func init() {
	initMetrics()
}
