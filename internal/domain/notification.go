package domain

import "github.com/google/uuid"

// NotificationType discriminates the change-notification variants on the wire.
type NotificationType string

const (
	NotificationMediaAdded      NotificationType = "media-added"
	NotificationMediaDeleted    NotificationType = "media-deleted"
	NotificationMediaUpdated    NotificationType = "media-updated"
	NotificationDurationApplied NotificationType = "duration-applied"
)

// Notification is a transient wire message describing a committed mutation to
// a group's media. It always carries the target group slug so sessions can
// re-validate scoping even though registry membership already filters.
// Only the fields of the tagged variant are populated.
type Notification struct {
	Type     NotificationType `json:"type"`
	GroupID  string           `json:"groupId"`
	Items    []MediaItem      `json:"items,omitempty"`
	MediaID  uuid.UUID        `json:"mediaId"`
	Item     *MediaItem       `json:"item,omitempty"`
	Duration int              `json:"duration,omitempty"`
}

// Valid reports whether the notification is well-formed enough to apply.
// Malformed notifications are ignored by consumers, never fatal.
func (n Notification) Valid() bool {
	if n.GroupID == "" {
		return false
	}
	switch n.Type {
	case NotificationMediaAdded:
		return len(n.Items) > 0
	case NotificationMediaDeleted:
		return n.MediaID != uuid.Nil
	case NotificationMediaUpdated:
		return n.Item != nil
	case NotificationDurationApplied:
		return n.Duration >= 1
	default:
		return false
	}
}

func MediaAdded(groupSlug string, items []MediaItem) Notification {
	return Notification{Type: NotificationMediaAdded, GroupID: groupSlug, Items: items}
}

func MediaDeleted(groupSlug string, mediaID uuid.UUID) Notification {
	return Notification{Type: NotificationMediaDeleted, GroupID: groupSlug, MediaID: mediaID}
}

func MediaUpdated(groupSlug string, item MediaItem) Notification {
	return Notification{Type: NotificationMediaUpdated, GroupID: groupSlug, Item: &item}
}

func DurationApplied(groupSlug string, seconds int) Notification {
	return Notification{Type: NotificationDurationApplied, GroupID: groupSlug, Duration: seconds}
}

// JoinMessage is the single client-to-server message on the realtime
// transport: a display declaring which group it is watching. Idempotent and
// re-sent on every reconnect.
type JoinMessage struct {
	Type    string `json:"type"`
	GroupID string `json:"groupId"`
}

const JoinMessageType = "join-group"

func JoinGroup(groupSlug string) JoinMessage {
	return JoinMessage{Type: JoinMessageType, GroupID: groupSlug}
}
