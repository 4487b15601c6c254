// Package player implements the display-session side of the system: the
// slideshow state machine, the bootstrap loader, and the reconnecting
// realtime session.
//
// The state machine is a single goroutine with a command channel: every
// incoming notification, seed, and timer expiry is serialized through one
// mutation point, so the playback state never sees concurrent mutation. The
// public display must never crash: malformed or out-of-range notifications
// are ignored and every failure degrades to the empty state or to
// stale-but-valid content.
package player
