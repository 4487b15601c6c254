package domain

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// --- Model types ---

// MediaKind distinguishes still images from video clips.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// Event is a top-level grouping of slideshow groups, owned by one administrator.
type Event struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Group is a named ordered collection of media items rendered as one
// slideshow. Its slug doubles as the broadcast channel key, so it is
// globally unique.
type Group struct {
	ID        uuid.UUID `json:"id" db:"id"`
	EventID   uuid.UUID `json:"eventId" db:"event_id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	Position  int       `json:"position" db:"position"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	IsLive    bool      `json:"isLive" db:"is_live"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// MediaItem is one slide in a group. Position defines playback order within
// the group; consumers must tolerate non-contiguous values (ties broken by
// creation time). Version is the updated-at unix millisecond, used by
// displays to cache-bust a replaced asset.
type MediaItem struct {
	ID              uuid.UUID `json:"id" db:"id"`
	GroupID         uuid.UUID `json:"-" db:"group_id"`
	PublicID        string    `json:"-" db:"public_id"`
	URL             string    `json:"url" db:"url"`
	Kind            MediaKind `json:"kind" db:"kind"`
	DurationSeconds int       `json:"durationSeconds" db:"duration_seconds"`
	Position        int       `json:"position" db:"position"`
	Version         int64     `json:"version"`
	IsActive        bool      `json:"-" db:"is_active"`
	CreatedAt       time.Time `json:"-" db:"created_at"`
	UpdatedAt       time.Time `json:"-" db:"updated_at"`
}

// DisplayDuration returns how long the item should stay on screen.
// Non-positive or missing durations fall back to the given default.
func (m MediaItem) DisplayDuration(fallback time.Duration) time.Duration {
	if m.DurationSeconds < 1 {
		return fallback
	}
	return time.Duration(m.DurationSeconds) * time.Second
}

// --- Repository interfaces ---

type EventRepository interface {
	Create(ctx context.Context, name, slug string) (*Event, error)
	GetBySlug(ctx context.Context, slug string) (*Event, error)
	List(ctx context.Context) ([]Event, error)
	Rename(ctx context.Context, id uuid.UUID, name string) (*Event, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type GroupRepository interface {
	Create(ctx context.Context, eventID uuid.UUID, name, slug string) (*Group, error)
	Get(ctx context.Context, id uuid.UUID) (*Group, error)
	GetBySlug(ctx context.Context, slug string) (*Group, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Group, error)
	Update(ctx context.Context, id uuid.UUID, name *string, isLive *bool) (*Group, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type MediaRepository interface {
	// ListActive returns the active items of a group ordered by position
	// ascending, then creation time ascending.
	ListActive(ctx context.Context, groupID uuid.UUID) ([]MediaItem, error)
	Get(ctx context.Context, id uuid.UUID) (*MediaItem, error)
	// Create persists the item and assigns it the next position in the
	// group (append-at-end).
	Create(ctx context.Context, item *MediaItem) error
	Update(ctx context.Context, item *MediaItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ApplyDuration overwrites the duration of every active item in the
	// group and reports how many rows changed.
	ApplyDuration(ctx context.Context, groupID uuid.UUID, seconds int) (int64, error)
}

// --- Collaborator interfaces ---

// EventPublisher fans a change notification out to the displays watching the
// affected group. Callable only after the corresponding storage mutation has
// committed. Delivery is best-effort: failures are logged and swallowed,
// never propagated back to the admin mutation.
type EventPublisher interface {
	Publish(ctx context.Context, n Notification)
}

// UploadResult describes an asset stored by the CDN collaborator.
type UploadResult struct {
	PublicID string
	URL      string
	Kind     MediaKind
}

// MediaStore is the object/CDN collaborator. URLs are opaque to the core.
type MediaStore interface {
	Upload(ctx context.Context, filename, contentType string, r io.Reader) (*UploadResult, error)
	Destroy(ctx context.Context, publicID string) error
}
