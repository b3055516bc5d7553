package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/totegamma/officechat/internal/domain"
)

// ErrTrackerStopped is returned by Connect after Stop.
var ErrTrackerStopped = errors.New("presence tracker stopped")

// Connection is a live transport channel bound to one identity for its lifetime.
type Connection interface {
	ID() string
	Identity() string
	Send(event domain.Event) error
}

// PresenceListener observes offline/online transitions with the full online set.
type PresenceListener func(ctx context.Context, online []string)

// PresenceTracker maps identities to their live connections.
// Listeners run only on the first connect and the last disconnect of an identity.
type PresenceTracker struct {
	// order serializes transitions with their notifications so listeners
	// observe online sets in the order the transitions happened.
	order     sync.Mutex
	mu        sync.RWMutex
	conns     map[string]map[string]Connection
	listeners []PresenceListener
	stopped   bool
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		conns: make(map[string]map[string]Connection),
	}
}

// OnChange registers a listener. Register listeners before connections arrive.
func (p *PresenceTracker) OnChange(fn PresenceListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

func (p *PresenceTracker) Connect(ctx context.Context, conn Connection) error {
	p.order.Lock()
	defer p.order.Unlock()

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrTrackerStopped
	}
	identity := conn.Identity()
	set, ok := p.conns[identity]
	if !ok {
		set = make(map[string]Connection)
		p.conns[identity] = set
	}
	set[conn.ID()] = conn
	transitioned := !ok
	online, listeners := p.snapshotLocked(transitioned)
	p.mu.Unlock()

	if transitioned {
		slog.DebugContext(
			ctx, "Identity online",
			slog.String("identity", identity),
			slog.String("module", "presence"),
		)
		p.notify(ctx, listeners, online)
	}
	return nil
}

func (p *PresenceTracker) Disconnect(ctx context.Context, conn Connection) {
	p.order.Lock()
	defer p.order.Unlock()

	p.mu.Lock()
	identity := conn.Identity()
	set, ok := p.conns[identity]
	if !ok {
		p.mu.Unlock()
		return
	}
	if _, ok := set[conn.ID()]; !ok {
		p.mu.Unlock()
		return
	}
	delete(set, conn.ID())
	transitioned := len(set) == 0
	if transitioned {
		delete(p.conns, identity)
	}
	online, listeners := p.snapshotLocked(transitioned)
	p.mu.Unlock()

	if transitioned {
		slog.DebugContext(
			ctx, "Identity offline",
			slog.String("identity", identity),
			slog.String("module", "presence"),
		)
		p.notify(ctx, listeners, online)
	}
}

// OnlineSet returns the sorted identities with at least one live connection.
func (p *PresenceTracker) OnlineSet() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.onlineLocked()
}

func (p *PresenceTracker) IsOnline(identity string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.conns[identity]
	return ok
}

// Connections returns the live connections of identity.
func (p *PresenceTracker) Connections(identity string) []Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set := p.conns[identity]
	out := make([]Connection, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// All returns every live connection.
func (p *PresenceTracker) All() []Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Connection
	for _, set := range p.conns {
		for _, c := range set {
			out = append(out, c)
		}
	}
	return out
}

// Stop forgets every connection without emitting transitions and rejects later connects.
func (p *PresenceTracker) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	p.conns = make(map[string]map[string]Connection)
}

func (p *PresenceTracker) snapshotLocked(transitioned bool) ([]string, []PresenceListener) {
	if !transitioned {
		return nil, nil
	}
	return p.onlineLocked(), slices.Clone(p.listeners)
}

func (p *PresenceTracker) onlineLocked() []string {
	online := make([]string, 0, len(p.conns))
	for id := range p.conns {
		online = append(online, id)
	}
	slices.Sort(online)
	return online
}

func (p *PresenceTracker) notify(ctx context.Context, listeners []PresenceListener, online []string) {
	for _, fn := range listeners {
		fn(ctx, online)
	}
}
