package player

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/tkanok/slidewall/internal/domain"
)

// State is the playback state of a display session.
type State int

const (
	// StateEmpty means the group has no media; an empty placeholder is
	// shown and no timer is scheduled.
	StateEmpty State = iota
	// StatePlaying means one item is on screen with (for groups of two or
	// more items) an advance timer armed.
	StatePlaying
	// StateTransitioning means the advance timer expired and the visual
	// transition to the next item is in progress.
	StateTransitioning
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePlaying:
		return "playing"
	case StateTransitioning:
		return "transitioning"
	default:
		return "unknown"
	}
}

// Renderer is the output surface of a display session.
type Renderer interface {
	// Render shows the item. Called again with the same item when its
	// asset must be refreshed (URL or version changed).
	Render(item domain.MediaItem)
	// RenderEmpty shows the no-media placeholder.
	RenderEmpty()
}

const (
	defaultTransitionDelay = 400 * time.Millisecond
	defaultSlideDuration   = 5 * time.Second
)

// Config holds the tunables of the state machine. Zero values select the
// defaults above.
type Config struct {
	// DefaultDuration is used when an item carries no usable duration.
	DefaultDuration time.Duration
	// TransitionDelay is the fixed visual-transition interval between
	// committing one slide and the next.
	TransitionDelay time.Duration
}

// --- Command types ---

type playerCmd interface{ isPlayerCmd() }

type basePlayerCmd struct{}

func (basePlayerCmd) isPlayerCmd() {}

type seedCmd struct {
	basePlayerCmd
	items []domain.MediaItem
}

type notifyCmd struct {
	basePlayerCmd
	notification domain.Notification
}

type snapshotCmd struct {
	basePlayerCmd
	replyChannel chan Snapshot
}

type stopCmd struct {
	basePlayerCmd
}

// Snapshot is a copy of the playback state, used for inspection and tests.
type Snapshot struct {
	State State
	Index int
	Items []domain.MediaItem
}

// Current returns the currently displayed item, if any.
func (s Snapshot) Current() (domain.MediaItem, bool) {
	if s.State == StateEmpty || s.Index >= len(s.Items) {
		return domain.MediaItem{}, false
	}
	return s.Items[s.Index], true
}

// Player owns the ordered media sequence of one group, the playback
// position, and the advance timer. All mutation happens on its goroutine.
type Player struct {
	cmdCh    chan playerCmd
	clock    clockwork.Clock
	renderer Renderer
	cfg      Config

	items     []domain.MediaItem
	index     int
	state     State
	nextIndex int             // valid while transitioning
	timer     clockwork.Timer // nil when no timer is armed
	done      chan struct{}
}

// New creates a player in the Empty state and starts its goroutine.
func New(renderer Renderer, clock clockwork.Clock, cfg Config) *Player {
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = defaultSlideDuration
	}
	if cfg.TransitionDelay <= 0 {
		cfg.TransitionDelay = defaultTransitionDelay
	}
	p := &Player{
		cmdCh:    make(chan playerCmd, 64),
		clock:    clock,
		renderer: renderer,
		cfg:      cfg,
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// Seed replaces the whole sequence with a freshly bootstrapped one,
// discarding any in-flight state.
func (p *Player) Seed(items []domain.MediaItem) {
	p.cmdCh <- seedCmd{items: items}
}

// Apply patches the sequence with an incoming change notification.
// Malformed notifications are ignored.
func (p *Player) Apply(n domain.Notification) {
	p.cmdCh <- notifyCmd{notification: n}
}

// Snapshot returns a copy of the current playback state. Because it round
// trips through the player goroutine it also acts as a barrier: all
// previously submitted commands have been applied when it returns.
func (p *Player) Snapshot() Snapshot {
	replyCh := make(chan Snapshot, 1)
	p.cmdCh <- snapshotCmd{replyChannel: replyCh}
	return <-replyCh
}

// Stop cancels any pending timer and terminates the player goroutine.
func (p *Player) Stop() {
	p.cmdCh <- stopCmd{}
	<-p.done
}

func (p *Player) run() {
	defer close(p.done)

	for {
		var timerCh <-chan time.Time
		if p.timer != nil {
			timerCh = p.timer.Chan()
		}

		select {
		case cmd := <-p.cmdCh:
			switch c := cmd.(type) {
			case seedCmd:
				p.handleSeed(c.items)
			case notifyCmd:
				p.handleNotification(c.notification)
			case snapshotCmd:
				c.replyChannel <- p.snapshot()
			case stopCmd:
				p.disarmTimer()
				return
			default:
				slog.Warn("Player received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		case <-timerCh:
			p.timer = nil
			p.handleTimerExpiry()
		}
	}
}

func (p *Player) snapshot() Snapshot {
	items := make([]domain.MediaItem, len(p.items))
	copy(items, p.items)
	return Snapshot{State: p.state, Index: p.index, Items: items}
}

func (p *Player) handleSeed(items []domain.MediaItem) {
	p.disarmTimer()
	// Own a copy: later in-place deletes must not reach through to the
	// caller's backing array.
	p.items = append([]domain.MediaItem(nil), items...)
	p.index = 0

	if len(p.items) == 0 {
		p.state = StateEmpty
		p.renderer.RenderEmpty()
		return
	}

	p.state = StatePlaying
	p.renderer.Render(p.items[0])
	p.armForCurrent()
}

func (p *Player) handleTimerExpiry() {
	switch p.state {
	case StatePlaying:
		if len(p.items) < 2 {
			return
		}
		p.nextIndex = (p.index + 1) % len(p.items)
		p.state = StateTransitioning
		p.timer = p.clock.NewTimer(p.cfg.TransitionDelay)
	case StateTransitioning:
		p.commitTransition()
	}
}

func (p *Player) commitTransition() {
	if len(p.items) == 0 {
		p.state = StateEmpty
		p.index = 0
		return
	}
	p.index = p.nextIndex % len(p.items)
	p.state = StatePlaying
	p.renderer.Render(p.items[p.index])
	p.armForCurrent()
}

// armForCurrent schedules the advance timer for the displayed item. A group
// with exactly one item never cycles, so no timer is armed.
func (p *Player) armForCurrent() {
	if len(p.items) < 2 {
		return
	}
	p.timer = p.clock.NewTimer(p.items[p.index].DisplayDuration(p.cfg.DefaultDuration))
}

func (p *Player) disarmTimer() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Player) handleNotification(n domain.Notification) {
	if !n.Valid() {
		slog.Debug("Ignoring malformed notification", "type", string(n.Type))
		return
	}

	switch n.Type {
	case domain.NotificationMediaAdded:
		p.applyMediaAdded(n.Items)
	case domain.NotificationMediaDeleted:
		p.applyMediaDeleted(n)
	case domain.NotificationMediaUpdated:
		p.applyMediaUpdated(*n.Item)
	case domain.NotificationDurationApplied:
		p.applyDuration(n.Duration)
	}
}

// applyMediaAdded appends new items in the order delivered. The current
// index and a running timer are untouched, except when the sequence was
// empty (start playing immediately, nothing was previously shown) or held a
// single non-cycling item (arm the current item's timer from now).
func (p *Player) applyMediaAdded(items []domain.MediaItem) {
	wasEmpty := len(p.items) == 0
	wasSingle := len(p.items) == 1

	p.items = append(p.items, items...)

	if wasEmpty {
		p.index = 0
		p.state = StatePlaying
		p.renderer.Render(p.items[0])
		p.armForCurrent()
		return
	}

	if wasSingle && p.state == StatePlaying && p.timer == nil {
		p.armForCurrent()
	}
}

func (p *Player) applyMediaDeleted(n domain.Notification) {
	removed := p.indexOf(n.MediaID)
	if removed < 0 {
		return
	}

	oldIndex := p.index
	p.items = append(p.items[:removed], p.items[removed+1:]...)

	if len(p.items) == 0 {
		p.disarmTimer()
		p.state = StateEmpty
		p.index = 0
		p.renderer.RenderEmpty()
		return
	}

	switch {
	case removed == oldIndex:
		// The displayed item is gone and its asset may no longer be
		// retrievable: advance immediately instead of waiting for the
		// timer.
		p.index = oldIndex % len(p.items)
		p.disarmTimer()
		p.state = StatePlaying
		p.renderer.Render(p.items[p.index])
		p.armForCurrent()
		return
	case removed < oldIndex:
		p.index = oldIndex - 1
	}

	if len(p.items) == 1 {
		// Down to a single item: cancel cycling.
		p.disarmTimer()
		if p.state == StateTransitioning {
			p.state = StatePlaying
		}
		return
	}

	if p.state == StateTransitioning {
		p.nextIndex = (p.index + 1) % len(p.items)
	}
}

// applyMediaUpdated replaces the matching item in place by identity,
// preserving its slot in the sequence.
func (p *Player) applyMediaUpdated(item domain.MediaItem) {
	i := p.indexOf(item.ID)
	if i < 0 {
		return
	}

	previous := p.items[i]
	p.items[i] = item

	if i != p.index || p.state == StateEmpty {
		return
	}

	if item.URL != previous.URL || item.Version != previous.Version {
		// Forced re-render of the displayed asset, not a sequence change.
		p.renderer.Render(item)
	}

	if item.DurationSeconds != previous.DurationSeconds && p.state == StatePlaying {
		// Rearm with the new duration measured from now.
		p.disarmTimer()
		p.armForCurrent()
	}
}

// applyDuration overwrites every item's duration. A running advance timer is
// rearmed to the new duration from now, not retroactively.
func (p *Player) applyDuration(seconds int) {
	for i := range p.items {
		p.items[i].DurationSeconds = seconds
	}

	if p.state == StatePlaying && p.timer != nil {
		p.disarmTimer()
		p.armForCurrent()
	}
}

func (p *Player) indexOf(id uuid.UUID) int {
	for i := range p.items {
		if p.items[i].ID == id {
			return i
		}
	}
	return -1
}
