package server

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/tkanok/slidewall/internal/domain"
	"github.com/tkanok/slidewall/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // displays connect from arbitrary origins
	},
}

// handleBootstrap serves the full ordered active media sequence of a group.
// Public and credential-free: display clients call it on startup and after
// reconnects.
func (s *Server) handleBootstrap(c echo.Context) error {
	slug := c.Param("slug")

	ctx := c.Request().Context()
	group, err := s.deps.Groups.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}

	items, err := s.deps.Media.ListActive(ctx, group.ID)
	if err != nil {
		return err
	}
	if items == nil {
		items = []domain.MediaItem{}
	}

	metrics.BootstrapRequests.Inc()
	return c.JSON(200, items)
}

// handleWebSocket upgrades the connection and runs its read pump. The only
// client message is join-group; everything else flows server to client
// through the registry. The pump blocks until disconnect, then removes the
// connection from its channel.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err)
		return nil
	}
	defer s.deps.Hub.Leave(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil
		}

		var msg domain.JoinMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("Ignoring malformed client message", "error", err)
			continue
		}
		if msg.Type != domain.JoinMessageType || msg.GroupID == "" {
			continue
		}

		if _, err := s.deps.Groups.GetBySlug(c.Request().Context(), msg.GroupID); err != nil {
			slog.Warn("Ignoring join for unknown group", "group_slug", msg.GroupID)
			continue
		}

		if err := s.deps.Hub.Join(conn, msg.GroupID); err != nil {
			slog.Warn("Join rejected", "group_slug", msg.GroupID, "error", err)
			return nil
		}
	}
}
