package taskwire

import (
	"github.com/taskwire/taskwire/internal/engine"
	"github.com/taskwire/taskwire/internal/persistence"
	"github.com/taskwire/taskwire/pkg/api"
	"github.com/taskwire/taskwire/pkg/bus"
)

// Runner bundles a Bus, an Engine, BasicMetrics, and an in-memory dispatch
// history into a single process-local helper for development and tests.
//
// Typical usage:
//
//	runner := taskwire.NewRunner()
//	runner.Engine.SetName("pipeline").
//	    SetContextRule(taskwire.DefaultsRule(nil))
//	runner.Engine.DefineTask("work", work)
//	runner.Engine.SetStartupHook(hook)
//
//	_ = runner.Engine.Start(ctx)
//	events, _ := runner.Events()
//	snap := runner.Metrics.Snapshot()
type Runner struct {
	// Bus is the message bus shared by everything this runner dispatches.
	Bus *Bus

	// Engine is the workflow engine bound to Bus.
	Engine Engine

	// Metrics accumulates dispatch counters for the engine.
	Metrics *BasicMetrics

	// History records every dispatch event in memory.
	History HistoryStore
}

// NewRunner constructs a Runner backed by an in-memory bus, engine, metrics
// and history. Extra observers (for example a LoggingObserver) are combined
// with the built-in ones.
func NewRunner(extra ...Observer) *Runner {
	b := bus.New()
	metrics := &api.BasicMetrics{}
	history := persistence.NewMemoryHistory()

	observers := append([]Observer{metrics, persistence.NewRecorder(history, nil)}, extra...)
	eng := engine.New(b, engine.WithObserver(api.NewCompositeObserver(observers...)))

	return &Runner{
		Bus:     b,
		Engine:  eng,
		Metrics: metrics,
		History: history,
	}
}

// Events returns every dispatch event recorded so far, in dispatch order.
func (r *Runner) Events() ([]*DispatchEvent, error) {
	return r.History.List(HistoryFilter{})
}
