// Package taskwire provides a minimal in-process event dispatcher for
// graph-shaped task pipelines.
//
// A unit of work ("task") processes a typed context and may trigger zero or
// more subsequent tasks by name, optionally fanning out over a batch of
// inputs. Taskwire is a single-process, call-stack-driven dispatcher, not a
// broker: there is no durable delivery, no distributed transport, no
// backpressure and no priority scheduling.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Bus
//  2. Engine
//  3. TaskFunc
//  4. Observer
//  5. Runner
//
// # Bus
//
// The Bus maintains ordered subscriber lists per topic. Publish enqueues one
// message and synchronously drains exactly one before returning, so every
// nested publish issued by a subscriber completes its entire synchronous
// subtree first. Across any purely synchronous chain of tasks this yields
// depth-first, pre-order execution in the exact order triggers are issued.
// The guarantee holds only while handlers run to completion on the calling
// goroutine; once a handler hands work off to another goroutine, later
// siblings may begin, and even finish, before that work resumes.
//
// # Engine
//
// The Engine is the workflow layer over the bus. It owns a named task
// registry, a context-construction rule, and a startup hook:
//
//	eng := taskwire.NewEngine().
//	    SetName("pipeline").
//	    SetContextRule(taskwire.DefaultsRule(taskwire.Fields{"value": 0}))
//
//	eng.DefineTask("double", func(ctx context.Context, inv *taskwire.Invocation) error {
//	    fields := inv.Context.(taskwire.Fields)
//	    v := fields["value"].(int)
//	    return inv.Trigger(ctx, "report", taskwire.Fields{"value": v * 2})
//	})
//
//	eng.SetStartupHook(func(ctx context.Context, trigger taskwire.TriggerFunc) error {
//	    return trigger(ctx, "double", taskwire.Fields{"value": 5})
//	})
//
//	_ = eng.Start(ctx)
//
// Each trigger builds a fresh context from a partial field set; contexts are
// never mutated in place. Each task owns one private state record, created
// at DefineTask time, that survives every future invocation: counters,
// caches and retry bookkeeping live there.
//
// # Fault containment
//
// A failure raised synchronously by a task handler, the startup hook, or a
// raw bus subscriber (a returned error or a panic) is caught, logged, and
// contained to that one invocation; siblings and subsequent triggers are
// unaffected. A failure raised on a goroutine the handler spawned is outside
// this containment and propagates as an ordinary unhandled failure. That
// asymmetry is part of the fault model; handlers that defer work must guard
// it themselves.
//
// There is no engine-level retry. A retry loop is a task re-triggering its
// own name, and since recursive publishes nest the call stack, unbounded
// retries are a real stack-exhaustion hazard; bound them in the handler's
// state record.
//
// # Observer
//
// Observers receive dispatch lifecycle callbacks. Taskwire ships
// LoggingObserver (log/slog), BasicMetrics (atomic counters), a dispatch
// history recorder (memory or SQLite backed), and CompositeObserver to
// combine them.
//
// # Runner
//
// Runner bundles a bus, an engine, metrics, and an in-memory history store
// into a single process-local helper for development and tests.
//
// Workflows can also be declared in YAML via the manifest package, and
// dispatch can be traced with OpenTelemetry via the tracing package.
//
// For examples, see the /examples directory or the project README.
package taskwire
