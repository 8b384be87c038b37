// Package lifecycle runs one minidb server process from start to exit.
//
// A Controller moves through
//
//	Initializing -> Ready -> Running -> Draining -> Terminated
//
// It loads the persisted image into the store, binds the listeners, prints
// a single "ready" line, serves until a signal or context cancellation,
// drains in-flight commands within the grace period and saves the store
// exactly once before exiting.
package lifecycle
