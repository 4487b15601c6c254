// Package publish implements the change-notification publisher invoked by
// admin handlers after a durable mutation commits.
package publish

import (
	"context"
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/tkanok/slidewall/internal/domain"
	"github.com/tkanok/slidewall/internal/hub"
	"github.com/tkanok/slidewall/internal/metrics"
	"github.com/tkanok/slidewall/internal/redis"
)

// Publisher fans committed mutations out to watching displays. With Redis
// configured it publishes through Pub/Sub so every server instance's bridge
// delivers locally; without Redis (or when the publish fails) it broadcasts
// straight into the local hub. Failures are logged and swallowed: durable
// state is the source of truth and missed notifications self-heal on the
// display's next bootstrap.
type Publisher struct {
	hub    *hub.Hub
	pubsub *redis.PubSub // nil when running single-instance without Redis
}

func New(h *hub.Hub, ps *redis.PubSub) *Publisher {
	return &Publisher{hub: h, pubsub: ps}
}

// Publish packages the notification and hands it to the registry for
// fan-out. Callable only after the corresponding storage mutation committed.
func (p *Publisher) Publish(ctx context.Context, n domain.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		slog.Error("Failed to marshal notification", "type", string(n.Type), "group_slug", n.GroupID, "error", err)
		return
	}

	metrics.NotificationsPublished.WithLabelValues(string(n.Type)).Inc()

	if p.pubsub != nil {
		err := p.pubsub.Publish(ctx, data)
		if err == nil {
			return
		}
		slog.Warn("Redis publish failed, falling back to local broadcast",
			"type", string(n.Type), "group_slug", n.GroupID, "error", err)
	}

	p.hub.Broadcast(n.GroupID, data)
}
