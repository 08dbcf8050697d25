package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/pluginbuild/internal/logging"
	"github.com/fyrsmithlabs/pluginbuild/internal/orchestrator"
	"github.com/fyrsmithlabs/pluginbuild/internal/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// allStatuses lists every report status so each gets a series, even at zero.
var allStatuses = []report.Status{
	report.StatusOK,
	report.StatusSameVersion,
	report.StatusFailed,
	report.StatusError,
	report.StatusCommitFailed,
	report.StatusNotRan,
	report.StatusNotOwned,
}

// Pusher sends the final state of a run to a Prometheus Pushgateway.
type Pusher struct {
	url    string
	job    string
	runID  string
	client *http.Client
	now    func() time.Time
	logger *logging.Logger
}

// NewPusher creates a pusher for url. Series are grouped by run id so runs
// of the same job do not overwrite each other.
func NewPusher(url, job, runID string, logger *logging.Logger) *Pusher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pusher{
		url:    url,
		job:    job,
		runID:  runID,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
		logger: logger.Named("push"),
	}
}

// Push replaces the metrics of this run on the gateway.
func (p *Pusher) Push(ctx context.Context, state *orchestrator.State) error {
	if state == nil {
		return fmt.Errorf("push metrics: no run state")
	}

	pusher := push.New(p.url, p.job).
		Gatherer(p.collect(state)).
		Client(p.client)
	if p.runID != "" {
		pusher = pusher.Grouping("run_id", p.runID)
	}

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", p.url, err)
	}

	p.logger.Debug(ctx, "pushed run metrics",
		zap.String("job", p.job),
		zap.String("run_id", p.runID),
		zap.Int("rows", len(state.Report.Rows)),
	)
	return nil
}

// collect builds a registry holding the run's gauges.
func (p *Pusher) collect(state *orchestrator.State) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	tasks := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pluginbuild_tasks",
		Help: "Tasks in the build report, by status",
	}, []string{"status"})
	for _, s := range allStatuses {
		tasks.WithLabelValues(string(s)).Set(0)
	}
	for _, row := range state.Report.Rows {
		tasks.WithLabelValues(string(row.Status)).Inc()
	}

	discovered := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pluginbuild_tasks_discovered",
		Help: "Tasks handed to the build loop",
	})
	discovered.Set(float64(state.Report.TaskCount))

	aborted := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pluginbuild_run_aborted",
		Help: "1 if a repository consistency failure aborted the run",
	})
	aborted.Set(boolGauge(state.Aborted))

	failed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pluginbuild_run_failed",
		Help: "1 if any task failed or the run aborted",
	})
	failed.Set(boolGauge(state.Failed()))

	completed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pluginbuild_run_completed_timestamp_seconds",
		Help: "Unix time the run finished",
	})
	completed.Set(float64(p.now().Unix()))

	reg.MustRegister(tasks, discovered, aborted, failed, completed)
	return reg
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
