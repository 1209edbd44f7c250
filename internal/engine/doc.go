// Package engine implements the taskwire workflow engine: a named task
// registry over the message bus, with per-task persistent state and
// fault-contained dispatch.
//
// Scheduling is a single control flow: a trigger is an ordinary nested
// function call and a purely synchronous chain of tasks runs depth-first in
// trigger order. A task that perpetually re-triggers itself grows the native
// call stack by one frame per round, because recursive publishes are nested,
// not iterative; unbounded retry loops will exhaust the stack and must be
// bounded by application code.
package engine
