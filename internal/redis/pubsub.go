package redis

import (
	"context"
	"log/slog"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"github.com/tkanok/slidewall/internal/domain"
	"github.com/tkanok/slidewall/internal/hub"
)

// All notifications share one channel; the group slug inside the payload
// scopes the local fan-out.
const notificationChannel = "slidewall:notifications"

// PubSub relays change notifications across server instances via Redis
// Pub/Sub. Every instance (including the publisher's own) receives each
// message through its bridge and fans it into its local hub.
type PubSub struct {
	rdb *goredis.Client
}

func NewPubSub(rdb *goredis.Client) *PubSub {
	return &PubSub{rdb: rdb}
}

// Publish sends an already-marshaled notification to all instances.
func (ps *PubSub) Publish(ctx context.Context, data []byte) error {
	return ps.rdb.Publish(ctx, notificationChannel, data).Err()
}

// StartBridge subscribes to the notification channel and rebroadcasts each
// message into the local hub. Returns a stop function.
func (ps *PubSub) StartBridge(ctx context.Context, h *hub.Hub) func() {
	sub := ps.rdb.Subscribe(ctx, notificationChannel)

	bridgeCtx, cancel := context.WithCancel(ctx)

	go func() {
		msgCh := sub.Channel()
		for {
			select {
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				var n domain.Notification
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					slog.Warn("Dropping malformed pubsub notification", "error", err)
					continue
				}
				if n.GroupID == "" {
					slog.Warn("Dropping pubsub notification without group", "type", string(n.Type))
					continue
				}
				h.Broadcast(n.GroupID, []byte(msg.Payload))
			case <-bridgeCtx.Done():
				return
			}
		}
	}()

	return func() {
		cancel()
		_ = sub.Close()
	}
}
