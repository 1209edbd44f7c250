package api

import (
	"context"
	"errors"
)

// ErrNoContextRule is returned by Engine.Trigger when no context rule has
// been configured. The omission is only reported at the first trigger,
// not at configuration time.
var ErrNoContextRule = errors.New("context rule not configured")

// ErrTaskPanic wraps a panic recovered from a task handler, a startup hook,
// or a bus subscriber. The panic is contained to the one invocation that
// raised it; siblings and subsequent triggers are unaffected.
var ErrTaskPanic = errors.New("task panicked")

// Fields is a sparse, partial set of context fields. Triggers carry Fields;
// the workflow's ContextRule turns them into a complete context value.
type Fields map[string]any

// ContextRule builds a complete context value from a partial field set.
// It is invoked once per trigger entry, so every task invocation receives
// a fresh context instance; the previous context is never mutated in place.
//
// Rules must be pure and must not fail for well-formed partial input.
type ContextRule func(partial Fields) (any, error)

// DefaultsRule returns a ContextRule that overlays the partial fields onto a
// copy of the given defaults and yields the merged Fields as the context.
// Fields not present in the partial keep their default value.
func DefaultsRule(defaults Fields) ContextRule {
	return func(partial Fields) (any, error) {
		merged := make(Fields, len(defaults)+len(partial))
		for k, v := range defaults {
			merged[k] = v
		}
		for k, v := range partial {
			merged[k] = v
		}
		return merged, nil
	}
}

// TriggerFunc advances the workflow by constructing one context per partial
// and publishing each to the named task's topic, in argument order.
//
// Shapes:
//   - no partials: one context built from an empty partial
//   - one partial: one context built from it
//   - many partials: one publish per entry; entry i's entire synchronous
//     downstream fan-out completes before entry i+1 is published
type TriggerFunc func(ctx context.Context, task string, partials ...Fields) error

// Invocation is the call record handed to a task handler.
type Invocation struct {
	// Context is the fresh context value built by the workflow's ContextRule.
	Context any

	// State is this task's private persistent state. It is created once at
	// DefineTask time and shared by every future invocation of the task for
	// the lifetime of the workflow. It is not visible to other tasks.
	State Fields

	// TaskName is the fully-qualified task name ("[workflow] local").
	TaskName string

	// Trigger advances the workflow; it is bound to the owning engine.
	Trigger TriggerFunc
}

// TaskFunc is a single task handler. A returned error (or a panic raised
// before the handler hands work to another goroutine) is contained: logged
// and discarded, never aborting siblings or the workflow. A failure on a
// goroutine the handler spawned is outside the containment boundary.
type TaskFunc func(ctx context.Context, inv *Invocation) error

// StateInit builds a task's initial state. A nil result is treated as an
// empty Fields.
type StateInit func() Fields

// StartupHook kicks off a workflow. It receives a trigger bound to the
// engine that invoked it.
type StartupHook func(ctx context.Context, trigger TriggerFunc) error

// Engine is the workflow layer over the message bus. It owns a named task
// registry, one context-construction rule, and a startup hook; it translates
// task names into bus topics and manages per-task persistent state.
//
// The configuration setters are chainable and perform no validation; calling
// one twice silently overwrites. Configuring an engine after Start is
// unsupported (not guarded).
type Engine interface {
	// SetName sets the workflow name used to qualify task topics.
	SetName(name string) Engine

	// SetContextRule sets the workflow's context-construction rule.
	SetContextRule(rule ContextRule) Engine

	// SetStartupHook sets the hook invoked by Start.
	SetStartupHook(hook StartupHook) Engine

	// DefineTask registers a task under the qualified name
	// "[workflow] name" and returns that name. Task state is created once
	// here (via init, or empty) and survives every future invocation.
	// Redefining a name replaces the handler but keeps the existing state
	// and registration order position.
	DefineTask(name string, fn TaskFunc, init ...StateInit) string

	// Trigger constructs one context per partial and publishes each to the
	// named task's topic, in order. It returns an error only when context
	// construction fails (notably ErrNoContextRule); entries published
	// before the failing one stay published. Task failures are contained
	// and never surface here.
	Trigger(ctx context.Context, task string, partials ...Fields) error

	// Start subscribes every registered task to the bus (registration
	// order) and then runs the startup hook. A synchronous hook failure is
	// contained: triggers issued before the failure have fully run, later
	// ones are never issued, and Start still returns nil.
	Start(ctx context.Context) error
}
