package player

import (
	"context"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/tkanok/slidewall/internal/domain"
)

const (
	// Displays retry forever with a constant delay; an unattended screen
	// has nowhere else to go.
	defaultReconnectDelay = time.Second

	joinWriteTimeout = 5 * time.Second
)

// SessionConfig wires one display session to its group.
type SessionConfig struct {
	// GroupSlug names the group whose slideshow this session renders.
	GroupSlug string
	// WebsocketURL is the server's realtime endpoint (e.g., "wss://slides.example/ws").
	WebsocketURL string
	// ReconnectDelay is the constant delay between reconnect attempts.
	// Zero selects the 1s default.
	ReconnectDelay time.Duration
	// RefreshOnReconnect re-bootstraps the full sequence after every
	// reconnect, closing the missed-notification gap of a disconnect
	// window.
	RefreshOnReconnect bool
}

// Session is the lifecycle of one unattended display: bootstrap, subscribe,
// patch, reconnect.
type Session struct {
	cfg    SessionConfig
	loader *Loader
	player *Player
	dialer *websocket.Dialer
	clock  clockwork.Clock
}

func NewSession(cfg SessionConfig, loader *Loader, player *Player, clock clockwork.Clock) *Session {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	return &Session{
		cfg:    cfg,
		loader: loader,
		player: player,
		dialer: websocket.DefaultDialer,
		clock:  clock,
	}
}

// Run drives the session until the context is cancelled. It never returns a
// failure from transport loss: reconnection is unbounded.
func (s *Session) Run(ctx context.Context) error {
	// Initial bootstrap seeds the state machine; on failure the display
	// shows the empty state and heals on a later cycle.
	s.player.Seed(s.loader.Load(ctx, s.cfg.GroupSlug))

	first := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := s.dialer.DialContext(ctx, s.cfg.WebsocketURL, nil)
		if err != nil {
			slog.Warn("Realtime connect failed, retrying", "group_slug", s.cfg.GroupSlug, "error", err)
			if err := s.sleep(ctx); err != nil {
				return err
			}
			continue
		}

		if !first && s.cfg.RefreshOnReconnect {
			// Notifications published while disconnected are lost;
			// a fresh bootstrap restores consistency.
			s.player.Seed(s.loader.Load(ctx, s.cfg.GroupSlug))
		}
		first = false

		if err := s.join(conn); err != nil {
			slog.Warn("Join failed, reconnecting", "group_slug", s.cfg.GroupSlug, "error", err)
			conn.Close()
			if err := s.sleep(ctx); err != nil {
				return err
			}
			continue
		}

		slog.Info("Subscribed to group channel", "group_slug", s.cfg.GroupSlug)
		s.readLoop(ctx, conn)
		conn.Close()

		if err := s.sleep(ctx); err != nil {
			return err
		}
	}
}

// join re-declares the watched group; idempotent on the server side.
func (s *Session) join(conn *websocket.Conn) error {
	data, err := json.Marshal(domain.JoinGroup(s.cfg.GroupSlug))
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(joinWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop applies pushed notifications until the connection drops or the
// context is cancelled.
func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			slog.Warn("Realtime connection lost", "group_slug", s.cfg.GroupSlug, "error", err)
			return
		}

		var n domain.Notification
		if err := json.Unmarshal(data, &n); err != nil {
			slog.Debug("Ignoring malformed notification", "group_slug", s.cfg.GroupSlug, "error", err)
			continue
		}
		if n.GroupID != s.cfg.GroupSlug {
			// Registry membership already scopes delivery; this is
			// defense in depth.
			slog.Debug("Ignoring notification for other group", "group_slug", n.GroupID)
			continue
		}

		s.player.Apply(n)
	}
}

func (s *Session) sleep(ctx context.Context) error {
	timer := s.clock.NewTimer(s.cfg.ReconnectDelay)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
