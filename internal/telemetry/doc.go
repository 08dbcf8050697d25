// Package telemetry wires OpenTelemetry tracing and metrics for pluginbuild
// and pushes per-run results to a Prometheus Pushgateway.
//
// Spans and counters are emitted by the orchestrator through the global
// providers, so New only needs to run before the first task:
//
//	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
// A CI job exits long before any scrape could reach it. NewPusher sends the
// final run state to a Pushgateway instead:
//
//	pusher := telemetry.NewPusher(url, "pluginbuild", runID, logger)
//
// Telemetry failures never fail a build. When a provider cannot be created
// the instance is marked degraded and the global no-op providers stay in place.
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
