package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/taskwire/taskwire/pkg/api"
)

func TestPanickingTaskIsContained(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine()
	eng.SetName("contain").SetContextRule(passthroughRule)

	var after []string

	eng.DefineTask("explode", func(ctx context.Context, inv *api.Invocation) error {
		panic("kaboom")
	})
	eng.DefineTask("survivor", func(ctx context.Context, inv *api.Invocation) error {
		after = append(after, "survivor")
		return nil
	})

	eng.SetStartupHook(func(ctx context.Context, trigger api.TriggerFunc) error {
		if err := trigger(ctx, "explode"); err != nil {
			return err
		}
		// The panic above was contained inside its own dispatch; the hook
		// continues and the sibling still runs.
		return trigger(ctx, "survivor")
	})

	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if len(after) != 1 || after[0] != "survivor" {
		t.Fatalf("expected survivor to run after the panicking task, got %v", after)
	}
}

func TestFailingTaskDoesNotAbortBatch(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine()
	eng.SetName("batch-fail").SetContextRule(passthroughRule)

	var seen []int
	eng.DefineTask("pick", func(ctx context.Context, inv *api.Invocation) error {
		fields := inv.Context.(api.Fields)
		n := fields["n"].(int)
		if n == 2 {
			return errors.New("entry 2 is cursed")
		}
		seen = append(seen, n)
		return nil
	})

	eng.SetStartupHook(func(ctx context.Context, trigger api.TriggerFunc) error {
		return trigger(ctx, "pick", api.Fields{"n": 1}, api.Fields{"n": 2}, api.Fields{"n": 3})
	})

	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 3 {
		t.Fatalf("expected entries 1 and 3 to complete around the failure, got %v", seen)
	}
}

func TestStartupHookErrorIsContained(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine()
	eng.SetName("hookfail").SetContextRule(passthroughRule)

	var ran []string
	eng.DefineTask("first", func(ctx context.Context, inv *api.Invocation) error {
		ran = append(ran, "first")
		return nil
	})
	eng.DefineTask("never", func(ctx context.Context, inv *api.Invocation) error {
		ran = append(ran, "never")
		return nil
	})

	eng.SetStartupHook(func(ctx context.Context, trigger api.TriggerFunc) error {
		if err := trigger(ctx, "first"); err != nil {
			return err
		}
		return errors.New("hook gives up before the second trigger")
	})

	// The hook failure is contained: Start still returns nil, the trigger
	// issued before the failure has fully run, and nothing after it ran.
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if len(ran) != 1 || ran[0] != "first" {
		t.Fatalf("expected only the first task to run, got %v", ran)
	}
}

func TestStartupHookPanicIsContained(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine()
	eng.SetName("hookpanic").SetContextRule(passthroughRule)

	var ran []string
	eng.DefineTask("first", func(ctx context.Context, inv *api.Invocation) error {
		ran = append(ran, "first")
		return nil
	})

	eng.SetStartupHook(func(ctx context.Context, trigger api.TriggerFunc) error {
		_ = trigger(ctx, "first")
		panic("hook panic")
	})

	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if len(ran) != 1 || ran[0] != "first" {
		t.Fatalf("expected first task to have completed before the hook panic, got %v", ran)
	}
}

// recordingObserver captures observer callbacks for assertions.
type recordingObserver struct {
	api.NoopObserver

	mu        sync.Mutex
	completed []error
	startup   []error
}

func (r *recordingObserver) OnTaskCompleted(ctx context.Context, topic string, err error, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, err)
}

func (r *recordingObserver) OnStartupFailed(ctx context.Context, workflow string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startup = append(r.startup, err)
}

func TestObserverSeesContainedFailures(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	eng := newTestEngine(WithObserver(obs))
	eng.SetName("observed").SetContextRule(passthroughRule)

	eng.DefineTask("panics", func(ctx context.Context, inv *api.Invocation) error {
		panic("observed panic")
	})

	eng.SetStartupHook(func(ctx context.Context, trigger api.TriggerFunc) error {
		if err := trigger(ctx, "panics"); err != nil {
			return err
		}
		return errors.New("and then the hook fails")
	})

	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if len(obs.completed) != 1 {
		t.Fatalf("expected 1 task completion callback, got %d", len(obs.completed))
	}
	if !errors.Is(obs.completed[0], api.ErrTaskPanic) {
		t.Fatalf("expected recovered panic wrapped in ErrTaskPanic, got %v", obs.completed[0])
	}
	if len(obs.startup) != 1 {
		t.Fatalf("expected 1 startup failure callback, got %d", len(obs.startup))
	}
}
