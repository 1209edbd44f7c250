package taskwire

import (
	"database/sql"
	"log/slog"

	"github.com/taskwire/taskwire/internal/engine"
	"github.com/taskwire/taskwire/internal/persistence"
	"github.com/taskwire/taskwire/pkg/api"
	"github.com/taskwire/taskwire/pkg/bus"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine               = api.Engine
	Fields               = api.Fields
	ContextRule          = api.ContextRule
	TaskFunc             = api.TaskFunc
	StateInit            = api.StateInit
	StartupHook          = api.StartupHook
	TriggerFunc          = api.TriggerFunc
	Invocation           = api.Invocation
	Observer             = api.Observer
	NoopObserver         = api.NoopObserver
	LoggingObserver      = api.LoggingObserver
	CompositeObserver    = api.CompositeObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	DispatchEvent        = api.DispatchEvent
	EventKind            = api.EventKind
	HistoryFilter        = api.HistoryFilter
	HistoryStore         = api.HistoryStore
	Bus                  = bus.Bus
	BusHandler           = bus.Handler
)

// Re-export common helpers and sentinels.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	DefaultsRule         = api.DefaultsRule

	ErrNoContextRule = api.ErrNoContextRule
	ErrTaskPanic     = api.ErrTaskPanic
)

// Re-export history event kinds for convenience.

const (
	EventTriggered     = api.EventTriggered
	EventTaskCompleted = api.EventTaskCompleted
	EventTaskFailed    = api.EventTaskFailed
	EventStartupFailed = api.EventStartupFailed
)

// Constructors
// These wrap the internal packages so external callers never need to
// import them.

// NewBus returns an empty message bus. Multiple engines may share one bus;
// qualified topic names keep their tasks apart.
func NewBus() *Bus {
	return bus.New()
}

// NewBusWithLogger returns a bus that logs subscriptions and contained
// failures with the given logger.
func NewBusWithLogger(logger *slog.Logger) *Bus {
	return bus.New(bus.WithLogger(logger))
}

// NewEngine returns an Engine dispatching over its own private bus.
func NewEngine() Engine {
	return engine.New(bus.New())
}

// NewEngineWithBus returns an Engine dispatching over the given shared bus.
func NewEngineWithBus(b *Bus) Engine {
	return engine.New(b)
}

// NewEngineWithObserver returns an Engine over its own bus with the given
// Observer.
func NewEngineWithObserver(obs Observer) Engine {
	return engine.New(bus.New(), engine.WithObserver(obs))
}

// NewEngineWithBusAndObserver returns an Engine over the given bus with the
// given Observer.
func NewEngineWithBusAndObserver(b *Bus, obs Observer) Engine {
	return engine.New(b, engine.WithObserver(obs))
}

// History constructors.

// NewMemoryHistory returns an in-memory dispatch history store.
func NewMemoryHistory() HistoryStore {
	return persistence.NewMemoryHistory()
}

// NewSQLiteHistory returns a dispatch history store that persists events in
// a SQLite database. The caller imports the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
//
//	db, _ := sql.Open("sqlite", "file:dispatch.db")
//	hist, err := taskwire.NewSQLiteHistory(db)
func NewSQLiteHistory(db *sql.DB) (HistoryStore, error) {
	return persistence.NewSQLiteHistory(db)
}

// NewHistoryRecorder returns an Observer that appends dispatch events to
// store. Combine it with other observers via NewCompositeObserver.
func NewHistoryRecorder(store HistoryStore) Observer {
	return persistence.NewRecorder(store, nil)
}
