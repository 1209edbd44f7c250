// Package api defines the public types of the taskwire dispatch engine:
// the Engine interface, task and hook signatures, the Observer lifecycle
// callbacks, and the dispatch history model.
//
// Application code usually imports the root taskwire package, which
// re-exports everything here.
package api
