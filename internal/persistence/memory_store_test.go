package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taskwire/taskwire/pkg/api"
)

func TestMemoryHistoryAssignsSequentialSeq(t *testing.T) {
	s := NewMemoryHistory()

	for i := 0; i < 3; i++ {
		ev := &api.DispatchEvent{ID: "id", Topic: "t", Kind: api.EventTriggered, At: time.Now()}
		require.NoError(t, s.Append(ev))
		require.Equal(t, int64(i+1), ev.Seq)
	}

	events, err := s.List(api.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, ev := range events {
		require.Equal(t, int64(i+1), ev.Seq)
	}
}

func TestMemoryHistoryFilters(t *testing.T) {
	s := NewMemoryHistory()

	require.NoError(t, s.Append(&api.DispatchEvent{Topic: "a", Kind: api.EventTriggered}))
	require.NoError(t, s.Append(&api.DispatchEvent{Topic: "a", Kind: api.EventTaskCompleted}))
	require.NoError(t, s.Append(&api.DispatchEvent{Topic: "b", Kind: api.EventTaskFailed, Error: "boom"}))

	byTopic, err := s.List(api.HistoryFilter{Topic: "a"})
	require.NoError(t, err)
	require.Len(t, byTopic, 2)

	byKind, err := s.List(api.HistoryFilter{Kind: api.EventTaskFailed})
	require.NoError(t, err)
	require.Len(t, byKind, 1)
	require.Equal(t, "boom", byKind[0].Error)

	both, err := s.List(api.HistoryFilter{Topic: "a", Kind: api.EventTriggered})
	require.NoError(t, err)
	require.Len(t, both, 1)
}

func TestMemoryHistoryIsolatesStoredEvents(t *testing.T) {
	s := NewMemoryHistory()

	ev := &api.DispatchEvent{Topic: "orig", Kind: api.EventTriggered}
	require.NoError(t, s.Append(ev))

	// Mutating the caller's event after Append must not rewrite history,
	// and mutating a listed event must not either.
	ev.Topic = "mutated"

	listed, err := s.List(api.HistoryFilter{})
	require.NoError(t, err)
	require.Equal(t, "orig", listed[0].Topic)

	listed[0].Topic = "mutated-again"
	again, err := s.List(api.HistoryFilter{})
	require.NoError(t, err)
	require.Equal(t, "orig", again[0].Topic)
}
