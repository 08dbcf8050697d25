// Package orchestrator runs the plugin build loop.
//
// # Overview
//
// The loop visits build tasks one at a time, in the order they were
// discovered, and decides for each one whether it runs:
//
//	NotOwned → Aborted → Execute
//
// A task the triggering actor does not own is skipped (and reported only when
// it was built before). Once a repository consistency failure has aborted the
// run, every remaining task is recorded as "not ran" without touching the
// build engine. Everything else is built and the classified result is
// recorded in the report.
//
// # Key Components
//
// ## State
//
// State holds the run-wide flags and the report. It is passed explicitly to
// the loop, has no locks and is read by the notify package once the loop has
// returned. Its Admit and Record methods are the only transitions; both the
// Runner and the Temporal workflow drive a run through them.
//
// ## Runner
//
// Runner wires State to a build engine, an optional changelog source and CI
// log groups:
//
//	runner := orchestrator.NewRunner(engine, logger, orchestrator.Options{
//	    Actor:    cfg.GitHub.Actor,
//	    Commit:   cfg.Commit,
//	    Repo:     cfg.GitHub.Repository,
//	    PRNumber: cfg.GitHub.PRNumber,
//	})
//	runner.SetChangelogSource(gh)
//
//	state := orchestrator.NewState()
//	err := runner.Run(ctx, tasks, state)
//
// Engine calls are synchronous and carry no timeout of their own; the loop
// checks for cancellation only between tasks.
package orchestrator
