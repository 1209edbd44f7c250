package persistence

import (
	"context"
	"log/slog"
	"time"

	"github.com/taskwire/taskwire/internal/idgen"
	"github.com/taskwire/taskwire/pkg/api"
)

// Recorder is an api.Observer that appends dispatch events to a
// HistoryStore. Successful task completions and contained failures are both
// recorded; OnTaskStart and OnSubscribe are not, to keep history one row per
// dispatch outcome.
//
// Append errors are logged and dropped: history is an audit trail, and a
// failing store must not fail dispatch.
type Recorder struct {
	api.NoopObserver

	store  api.HistoryStore
	logger *slog.Logger
}

// NewRecorder returns a Recorder writing to store. If logger is nil,
// slog.Default() is used.
func NewRecorder(store api.HistoryStore, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger}
}

func (r *Recorder) OnTrigger(ctx context.Context, topic string) {
	r.record(ctx, topic, api.EventTriggered, nil)
}

func (r *Recorder) OnTaskCompleted(ctx context.Context, topic string, err error, d time.Duration) {
	kind := api.EventTaskCompleted
	if err != nil {
		kind = api.EventTaskFailed
	}
	r.record(ctx, topic, kind, err)
}

func (r *Recorder) OnStartupFailed(ctx context.Context, workflow string, err error) {
	r.record(ctx, workflow, api.EventStartupFailed, err)
}

func (r *Recorder) record(ctx context.Context, topic string, kind api.EventKind, err error) {
	ev := &api.DispatchEvent{
		ID:    idgen.New(),
		Topic: topic,
		Kind:  kind,
		At:    time.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}

	if appendErr := r.store.Append(ev); appendErr != nil {
		r.logger.ErrorContext(ctx, "history append failed",
			slog.String("topic", topic),
			slog.Any("error", appendErr),
		)
	}
}
