package hub

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/tkanok/slidewall/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

// --- Command types ---

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type joinCmd struct {
	baseHubCmd
	connection   *websocket.Conn
	groupSlug    string
	errorChannel chan error
}

type leaveCmd struct {
	baseHubCmd
	connection *websocket.Conn
}

type broadcastCmd struct {
	baseHubCmd
	groupSlug string
	data      []byte
}

type memberCountCmd struct {
	baseHubCmd
	groupSlug    string
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// connState tracks the writer and current channel of one connection.
type connState struct {
	writer    *clientWriter
	groupSlug string
}

// Hub is the group channel registry. Created at process start, torn down at
// shutdown; channels themselves are ephemeral and recreated lazily on join.
type Hub struct {
	cmdCh       chan hubCmd
	clock       clockwork.Clock
	connections map[*websocket.Conn]*connState
	channels    map[string]map[*websocket.Conn]struct{}
	maxPerGroup int
	done        chan struct{}
}

// New creates the registry and starts its actor goroutine.
// maxPerGroup limits connections per channel (prevents resource exhaustion).
func New(clock clockwork.Clock, maxPerGroup int) *Hub {
	h := &Hub{
		cmdCh:       make(chan hubCmd, 256),
		clock:       clock,
		connections: make(map[*websocket.Conn]*connState),
		channels:    make(map[string]map[*websocket.Conn]struct{}),
		maxPerGroup: maxPerGroup,
		done:        make(chan struct{}),
	}
	go h.run()
	return h
}

// Join adds the connection to the named group channel, removing it from any
// previously joined channel first. Idempotent: joining the current channel
// again is a no-op.
func (h *Hub) Join(conn *websocket.Conn, groupSlug string) error {
	errCh := make(chan error, 1)
	h.cmdCh <- joinCmd{connection: conn, groupSlug: groupSlug, errorChannel: errCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("join command timed out after %v", commandTimeout)
	}
}

// Leave removes the connection from its channel. Idempotent; invoked on
// disconnect.
func (h *Hub) Leave(conn *websocket.Conn) {
	h.cmdCh <- leaveCmd{connection: conn}
}

// Broadcast delivers the payload to every current member of the channel.
// Fire-and-forget: no acknowledgment, no retry. Broadcasting to a channel
// with zero members is a silent no-op.
func (h *Hub) Broadcast(groupSlug string, data []byte) {
	h.cmdCh <- broadcastCmd{groupSlug: groupSlug, data: data}
}

// MemberCount returns the number of connections in a channel.
// Returns -1 if the command times out.
func (h *Hub) MemberCount(groupSlug string) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- memberCountCmd{groupSlug: groupSlug, replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("MemberCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the registry, closing all connections.
// Blocks until the actor goroutine has exited or the timeout is reached.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timer := h.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Hub stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (h *Hub) run() {
	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case joinCmd:
			h.handleJoin(c)
		case leaveCmd:
			h.handleLeave(c.connection)
		case broadcastCmd:
			h.handleBroadcast(c)
		case memberCountCmd:
			c.replyChannel <- len(h.channels[c.groupSlug])
		case stopCmd:
			h.handleStop()
			return
		default:
			slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleJoin(c joinCmd) {
	if state, exists := h.connections[c.connection]; exists {
		if state.groupSlug == c.groupSlug {
			c.errorChannel <- nil
			return
		}
		// Moving channels: re-home the membership, keep the writer alive.
		h.removeFromChannel(c.connection, state.groupSlug)
		if err := h.addToChannel(c.connection, c.groupSlug); err != nil {
			h.dropConnection(c.connection)
			c.errorChannel <- err
			return
		}
		state.groupSlug = c.groupSlug
		slog.Debug("Display moved channel", "group_slug", c.groupSlug)
		c.errorChannel <- nil
		return
	}

	if err := h.addToChannel(c.connection, c.groupSlug); err != nil {
		c.connection.Close()
		c.errorChannel <- err
		return
	}

	h.connections[c.connection] = &connState{
		writer:    newClientWriter(c.connection, h.clock),
		groupSlug: c.groupSlug,
	}
	metrics.ConnectedDisplays.Set(float64(len(h.connections)))

	slog.Debug("Display joined channel", "group_slug", c.groupSlug, "members", len(h.channels[c.groupSlug]))
	c.errorChannel <- nil
}

func (h *Hub) addToChannel(conn *websocket.Conn, groupSlug string) error {
	members, exists := h.channels[groupSlug]
	if !exists {
		members = make(map[*websocket.Conn]struct{})
		h.channels[groupSlug] = members
		metrics.ActiveChannels.Set(float64(len(h.channels)))
	}

	if len(members) >= h.maxPerGroup {
		slog.Warn("Rejecting display: max members reached", "group_slug", groupSlug, "max_members", h.maxPerGroup)
		if len(members) == 0 {
			delete(h.channels, groupSlug)
			metrics.ActiveChannels.Set(float64(len(h.channels)))
		}
		return fmt.Errorf("max displays per group (%d) reached", h.maxPerGroup)
	}

	members[conn] = struct{}{}
	return nil
}

func (h *Hub) removeFromChannel(conn *websocket.Conn, groupSlug string) {
	members, exists := h.channels[groupSlug]
	if !exists {
		return
	}
	delete(members, conn)
	if len(members) == 0 {
		// Empty channels are garbage-collected and recreated lazily.
		delete(h.channels, groupSlug)
		metrics.ActiveChannels.Set(float64(len(h.channels)))
		slog.Info("Last display left channel", "group_slug", groupSlug)
	}
}

func (h *Hub) handleLeave(conn *websocket.Conn) {
	state, exists := h.connections[conn]
	if !exists {
		return
	}

	state.writer.stop()
	h.removeFromChannel(conn, state.groupSlug)
	delete(h.connections, conn)
	metrics.ConnectedDisplays.Set(float64(len(h.connections)))

	slog.Debug("Display left", "group_slug", state.groupSlug)
}

// dropConnection is handleLeave for a connection that is already mid-join.
func (h *Hub) dropConnection(conn *websocket.Conn) {
	if state, exists := h.connections[conn]; exists {
		state.writer.stop()
		delete(h.connections, conn)
		metrics.ConnectedDisplays.Set(float64(len(h.connections)))
	} else {
		conn.Close()
	}
}

func (h *Hub) handleBroadcast(c broadcastCmd) {
	members, exists := h.channels[c.groupSlug]
	if !exists {
		return
	}

	var slow []*websocket.Conn
	for conn := range members {
		state := h.connections[conn]
		select {
		case state.writer.sendChannel <- c.data:
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow display", "group_slug", c.groupSlug)
		metrics.SlowClientsEvicted.Inc()
		h.handleLeave(conn)
	}
}

func (h *Hub) handleStop() {
	total := len(h.connections)
	slog.Info("Hub shutting down", "channels", len(h.channels), "connections", total)

	for conn, state := range h.connections {
		state.writer.stopGraceful("Server shutting down")
		delete(h.connections, conn)
	}
	for groupSlug := range h.channels {
		delete(h.channels, groupSlug)
	}
	metrics.ConnectedDisplays.Set(0)
	metrics.ActiveChannels.Set(0)

	slog.Info("Hub shutdown complete", "disconnected_displays", total)
}
