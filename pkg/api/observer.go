package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the dispatch engine for logging, metrics
// and history recording.
//
// Implementations should be fast and non-blocking; dispatch is synchronous,
// so a slow observer delays the whole chain.
type Observer interface {
	// OnSubscribe is called by Start for every task subscribed to the bus,
	// in registration order.
	OnSubscribe(ctx context.Context, topic string)

	// OnTrigger is called once per trigger entry, just before the context
	// is published to the topic.
	OnTrigger(ctx context.Context, topic string)

	// OnTaskStart is called before a task handler is invoked.
	OnTaskStart(ctx context.Context, topic string)

	// OnTaskCompleted is called after a task handler returns or panics.
	// err is nil on success; a recovered panic arrives wrapped in
	// ErrTaskPanic. The failure has already been contained by the engine.
	OnTaskCompleted(ctx context.Context, topic string, err error, d time.Duration)

	// OnStartupFailed is called when the startup hook fails. Triggers the
	// hook issued before the failure point have already run to completion
	// by the time this fires.
	OnStartupFailed(ctx context.Context, workflow string, err error)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnSubscribe(ctx context.Context, topic string) {}
func (NoopObserver) OnTrigger(ctx context.Context, topic string)   {}
func (NoopObserver) OnTaskStart(ctx context.Context, topic string) {}
func (NoopObserver) OnTaskCompleted(ctx context.Context, topic string, err error, d time.Duration) {
}
func (NoopObserver) OnStartupFailed(ctx context.Context, workflow string, err error) {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnSubscribe(ctx context.Context, topic string) {
	for _, o := range c.observers {
		o.OnSubscribe(ctx, topic)
	}
}

func (c *CompositeObserver) OnTrigger(ctx context.Context, topic string) {
	for _, o := range c.observers {
		o.OnTrigger(ctx, topic)
	}
}

func (c *CompositeObserver) OnTaskStart(ctx context.Context, topic string) {
	for _, o := range c.observers {
		o.OnTaskStart(ctx, topic)
	}
}

func (c *CompositeObserver) OnTaskCompleted(ctx context.Context, topic string, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnTaskCompleted(ctx, topic, err, d)
	}
}

func (c *CompositeObserver) OnStartupFailed(ctx context.Context, workflow string, err error) {
	for _, o := range c.observers {
		o.OnStartupFailed(ctx, workflow, err)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs dispatch lifecycle events
// using the provided slog.Logger. If logger is nil, slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnSubscribe(ctx context.Context, topic string) {
	o.Logger.InfoContext(ctx, "task_subscribed",
		slog.String("topic", topic),
	)
}

func (o *LoggingObserver) OnTrigger(ctx context.Context, topic string) {
	o.Logger.DebugContext(ctx, "trigger",
		slog.String("topic", topic),
	)
}

func (o *LoggingObserver) OnTaskStart(ctx context.Context, topic string) {
	o.Logger.DebugContext(ctx, "task_start",
		slog.String("topic", topic),
	)
}

func (o *LoggingObserver) OnTaskCompleted(ctx context.Context, topic string, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "task_completed",
		slog.String("topic", topic),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnStartupFailed(ctx context.Context, workflow string, err error) {
	o.Logger.ErrorContext(ctx, "startup_hook_failed",
		slog.String("workflow", workflow),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate task durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	triggersIssued    atomic.Int64
	tasksStarted      atomic.Int64
	tasksCompleted    atomic.Int64
	tasksFailed       atomic.Int64
	startupFailures   atomic.Int64
	totalTaskDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	TriggersIssued  int64
	TasksStarted    int64
	TasksCompleted  int64
	TasksFailed     int64
	StartupFailures int64

	AvgTaskDuration time.Duration
}

func (m *BasicMetrics) OnTrigger(ctx context.Context, topic string) {
	m.triggersIssued.Add(1)
}

func (m *BasicMetrics) OnTaskStart(ctx context.Context, topic string) {
	m.tasksStarted.Add(1)
}

func (m *BasicMetrics) OnTaskCompleted(ctx context.Context, topic string, err error, d time.Duration) {
	if err != nil {
		m.tasksFailed.Add(1)
		return
	}
	// Only successful tasks contribute to the average duration.
	m.tasksCompleted.Add(1)
	m.totalTaskDuration.Add(d.Nanoseconds())
}

func (m *BasicMetrics) OnStartupFailed(ctx context.Context, workflow string, err error) {
	m.startupFailures.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	completed := m.tasksCompleted.Load()
	totalNs := m.totalTaskDuration.Load()

	var avg time.Duration
	if completed > 0 {
		avg = time.Duration(totalNs / completed)
	}

	return BasicMetricsSnapshot{
		TriggersIssued:  m.triggersIssued.Load(),
		TasksStarted:    m.tasksStarted.Load(),
		TasksCompleted:  completed,
		TasksFailed:     m.tasksFailed.Load(),
		StartupFailures: m.startupFailures.Load(),
		AvgTaskDuration: avg,
	}
}
