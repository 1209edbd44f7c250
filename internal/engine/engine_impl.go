package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskwire/taskwire/pkg/api"
	"github.com/taskwire/taskwire/pkg/bus"
	"github.com/taskwire/taskwire/tracing"
)

// task is one entry in the workflow's registry. state is created once at
// DefineTask time and closed over for the lifetime of the workflow.
type task struct {
	local string
	fn    api.TaskFunc
	state api.Fields
}

// engineImpl is the synchronous, in-process workflow layer over a Bus.
//
// It is single-control-flow, like the bus underneath it: dispatch is nested
// function invocation, so task state needs no locking as long as handlers do
// not hand the Invocation to other goroutines. A handler that suspends its
// work onto a goroutine and is re-triggered before that work finishes shares
// its one state record without coordination; see the package documentation.
type engineImpl struct {
	bus *bus.Bus

	name string
	rule api.ContextRule
	hook api.StartupHook

	// registry keyed by local name; order preserves registration order,
	// which is also the Start subscription order.
	tasks map[string]*task
	order []string

	observer api.Observer
	logger   *slog.Logger
}

// Option configures an engine.
type Option func(*engineImpl)

// WithObserver sets the observer notified of dispatch lifecycle events.
func WithObserver(obs api.Observer) Option {
	return func(e *engineImpl) {
		if obs != nil {
			e.observer = obs
		}
	}
}

// WithLogger sets the logger used for containment logging.
func WithLogger(logger *slog.Logger) Option {
	return func(e *engineImpl) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New returns an Engine dispatching through b. External users access this
// via taskwire.NewEngine.
func New(b *bus.Bus, opts ...Option) api.Engine {
	e := &engineImpl{
		bus:      b,
		tasks:    make(map[string]*task),
		observer: api.NoopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engineImpl) SetName(name string) api.Engine {
	e.name = name
	return e
}

func (e *engineImpl) SetContextRule(rule api.ContextRule) api.Engine {
	e.rule = rule
	return e
}

func (e *engineImpl) SetStartupHook(hook api.StartupHook) api.Engine {
	e.hook = hook
	return e
}

// qualifiedName prefixes a local task name with the workflow name, giving
// global uniqueness across workflows sharing one bus.
func (e *engineImpl) qualifiedName(local string) string {
	return "[" + e.name + "] " + local
}

func (e *engineImpl) DefineTask(name string, fn api.TaskFunc, init ...api.StateInit) string {
	qualified := e.qualifiedName(name)

	if existing, ok := e.tasks[name]; ok {
		// Overwrite-by-name: the handler is replaced, but the state record
		// is a singleton for the workflow's lifetime and the registration
		// order position is kept.
		existing.fn = fn
		return qualified
	}

	state := api.Fields{}
	if len(init) > 0 && init[0] != nil {
		if s := init[0](); s != nil {
			state = s
		}
	}

	e.tasks[name] = &task{local: name, fn: fn, state: state}
	e.order = append(e.order, name)
	return qualified
}

func (e *engineImpl) Trigger(ctx context.Context, name string, partials ...api.Fields) error {
	topic := e.qualifiedName(name)

	if len(partials) == 0 {
		partials = []api.Fields{{}}
	}

	// Each entry is a separate publish; the bus drain-before-return contract
	// means entry i's whole synchronous fan-out completes before entry i+1
	// is published. A context-construction failure aborts the remaining
	// entries but leaves the already-published ones untouched.
	for _, partial := range partials {
		value, err := e.buildContext(partial)
		if err != nil {
			return fmt.Errorf("trigger %s: %w", topic, err)
		}
		e.observer.OnTrigger(ctx, topic)
		e.bus.Publish(ctx, topic, value)
	}
	return nil
}

func (e *engineImpl) buildContext(partial api.Fields) (any, error) {
	if e.rule == nil {
		return nil, api.ErrNoContextRule
	}
	if partial == nil {
		partial = api.Fields{}
	}
	return e.rule(partial)
}

func (e *engineImpl) Start(ctx context.Context) error {
	for _, name := range e.order {
		t := e.tasks[name]
		topic := e.qualifiedName(name)
		e.bus.Subscribe(topic, e.wrap(topic, t))
		e.observer.OnSubscribe(ctx, topic)
	}

	if e.hook == nil {
		return nil
	}

	// The hook runs with a trigger bound to this engine. A synchronous
	// failure is contained: tasks triggered before the failure point have
	// already completed (bus drain contract), later triggers are never
	// issued.
	if err := e.runHook(ctx); err != nil {
		e.logger.ErrorContext(ctx, "startup hook failed",
			slog.String("workflow", e.name),
			slog.Any("error", err),
		)
		e.observer.OnStartupFailed(ctx, e.name, err)
	}
	return nil
}

func (e *engineImpl) runHook(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", api.ErrTaskPanic, r)
		}
	}()
	return e.hook(ctx, e.Trigger)
}

// wrap builds the bus handler for a task: it assembles the Invocation,
// opens a tracing span, invokes the user handler with panic containment,
// and reports the outcome. It always returns nil to the bus; a task failure
// never aborts the workflow or any sibling task.
func (e *engineImpl) wrap(topic string, t *task) bus.Handler {
	return func(ctx context.Context, payload any) error {
		inv := &api.Invocation{
			Context:  payload,
			State:    t.state,
			TaskName: topic,
			Trigger:  e.Trigger,
		}

		e.observer.OnTaskStart(ctx, topic)
		start := time.Now()

		spanCtx, span := tracing.StartSpan(ctx, topic)
		err := e.invoke(spanCtx, t, inv)
		tracing.EndSpan(span, err)

		e.observer.OnTaskCompleted(ctx, topic, err, time.Since(start))

		if err != nil {
			e.logger.ErrorContext(ctx, "task failed",
				slog.String("topic", topic),
				slog.Any("error", err),
			)
		}
		return nil
	}
}

// invoke runs the user handler, converting a synchronous panic into an
// error wrapped in api.ErrTaskPanic. A failure raised on a goroutine the
// handler spawned happens after this frame has returned and is not caught;
// that asymmetry is part of the fault model, not an oversight.
func (e *engineImpl) invoke(ctx context.Context, t *task, inv *api.Invocation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", api.ErrTaskPanic, r)
		}
	}()
	return t.fn(ctx, inv)
}
