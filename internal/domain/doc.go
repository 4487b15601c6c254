// Package domain defines the core domain types and interfaces.
//
// This package contains the slideshow model types (Event, Group, MediaItem),
// the change-notification wire type, and cross-cutting interfaces. No
// implementation code - just contracts. Prevents circular imports by keeping
// interfaces on the consumer side.
package domain
