package persistence

import (
	"sync"

	"github.com/taskwire/taskwire/pkg/api"
)

// MemoryHistory is an in-memory, append-only HistoryStore.
//
// Unlike the bus and engine, stores may be read from other goroutines (for
// example a test inspecting history while an example runs), so access is
// guarded by a mutex.
type MemoryHistory struct {
	mu      sync.Mutex
	nextSeq int64
	events  []*api.DispatchEvent
}

// Ensure MemoryHistory implements HistoryStore.
var _ api.HistoryStore = (*MemoryHistory)(nil)

// NewMemoryHistory returns an empty in-memory history store.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

func (s *MemoryHistory) Append(ev *api.DispatchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	ev.Seq = s.nextSeq

	// Store a copy so later caller mutations don't rewrite history.
	stored := *ev
	s.events = append(s.events, &stored)
	return nil
}

func (s *MemoryHistory) List(filter api.HistoryFilter) ([]*api.DispatchEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*api.DispatchEvent, 0, len(s.events))
	for _, ev := range s.events {
		if filter.Topic != "" && ev.Topic != filter.Topic {
			continue
		}
		if filter.Kind != "" && ev.Kind != filter.Kind {
			continue
		}
		copied := *ev
		out = append(out, &copied)
	}
	return out, nil
}
