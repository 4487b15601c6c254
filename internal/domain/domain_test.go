package domain

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayDuration_FallsBackForInvalidValues(t *testing.T) {
	fallback := 5 * time.Second

	tests := []struct {
		name     string
		seconds  int
		expected time.Duration
	}{
		{"missing", 0, fallback},
		{"negative", -3, fallback},
		{"minimum", 1, time.Second},
		{"normal", 7, 7 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := MediaItem{DurationSeconds: tt.seconds}
			assert.Equal(t, tt.expected, item.DisplayDuration(fallback))
		})
	}
}

func TestNotification_Valid(t *testing.T) {
	item := MediaItem{ID: uuid.New(), URL: "https://cdn.example/a.jpg", Kind: MediaKindImage}

	tests := []struct {
		name  string
		n     Notification
		valid bool
	}{
		{"media added", MediaAdded("wedding-hall-a", []MediaItem{item}), true},
		{"media added without items", Notification{Type: NotificationMediaAdded, GroupID: "g"}, false},
		{"media deleted", MediaDeleted("g", item.ID), true},
		{"media deleted without id", Notification{Type: NotificationMediaDeleted, GroupID: "g"}, false},
		{"media updated", MediaUpdated("g", item), true},
		{"media updated without item", Notification{Type: NotificationMediaUpdated, GroupID: "g"}, false},
		{"duration applied", DurationApplied("g", 2), true},
		{"duration applied zero", Notification{Type: NotificationDurationApplied, GroupID: "g"}, false},
		{"missing group", MediaDeleted("", item.ID), false},
		{"unknown type", Notification{Type: "resync", GroupID: "g"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.n.Valid())
		})
	}
}

func TestNotification_WireRoundTrip(t *testing.T) {
	item := MediaItem{
		ID:              uuid.New(),
		URL:             "https://cdn.example/clip.mp4",
		Kind:            MediaKindVideo,
		DurationSeconds: 8,
		Position:        3,
		Version:         1724745600123,
	}

	original := MediaUpdated("lobby-screen", item)

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Notification
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, NotificationMediaUpdated, decoded.Type)
	assert.Equal(t, "lobby-screen", decoded.GroupID)
	require.NotNil(t, decoded.Item)
	assert.Equal(t, item.ID, decoded.Item.ID)
	assert.Equal(t, item.Version, decoded.Item.Version)
	assert.True(t, decoded.Valid())
}

func TestJoinMessage_Wire(t *testing.T) {
	data, err := json.Marshal(JoinGroup("lobby-screen"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"join-group","groupId":"lobby-screen"}`, string(data))
}
