// Package hub implements the group channel registry using the actor pattern.
//
// The Hub maps group slugs to the display connections currently watching
// them and fans change notifications out to all members of a channel. A
// connection belongs to at most one channel; joining a new one implicitly
// leaves the previous one. Uses a single goroutine + command channel (no
// mutexes). Per-connection write goroutines keep slow clients from blocking
// a broadcast.
package hub
