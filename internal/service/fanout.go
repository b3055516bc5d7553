package service

import (
	"context"
	"log/slog"

	"github.com/totegamma/officechat/internal/domain"
)

// ConnectionSource resolves live connections. PresenceTracker implements it.
type ConnectionSource interface {
	Connections(identity string) []Connection
	All() []Connection
}

// Mirror receives a copy of every delivered event.
type Mirror interface {
	Publish(ctx context.Context, target string, event domain.Event) error
}

// Fanout delivers events to live connections on a best-effort basis.
// An identity with no live connection simply misses the event.
type Fanout struct {
	source ConnectionSource
	mirror Mirror
}

func NewFanout(source ConnectionSource, mirror Mirror) *Fanout {
	return &Fanout{source: source, mirror: mirror}
}

// Notify sends event to every live connection of identity.
func (f *Fanout) Notify(ctx context.Context, identity string, event domain.Event) {
	f.deliver(ctx, f.source.Connections(identity), event)
	f.publish(ctx, identity, event)
}

// Broadcast sends event to every live connection.
func (f *Fanout) Broadcast(ctx context.Context, event domain.Event) {
	f.deliver(ctx, f.source.All(), event)
	f.publish(ctx, "", event)
}

func (f *Fanout) deliver(ctx context.Context, conns []Connection, event domain.Event) {
	for _, conn := range conns {
		if err := conn.Send(event); err != nil {
			slog.DebugContext(
				ctx, "Dropped event",
				slog.String("connection", conn.ID()),
				slog.String("type", string(event.Type)),
				slog.String("error", err.Error()),
				slog.String("module", "fanout"),
			)
		}
	}
}

func (f *Fanout) publish(ctx context.Context, target string, event domain.Event) {
	if f.mirror == nil {
		return
	}
	if err := f.mirror.Publish(ctx, target, event); err != nil {
		slog.WarnContext(
			ctx, "Failed to mirror event",
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()),
			slog.String("module", "fanout"),
		)
	}
}
