package usecase

import (
	"context"
	"time"

	"github.com/totegamma/officechat/internal/domain"
)

// Store is the single-writer durable document.
type Store interface {
	Read() *domain.Document
	Commit(ctx context.Context, fn func(doc *domain.Document) error) (*domain.Document, error)
}

// Directory resolves identities owned by the external user directory.
type Directory interface {
	Lookup(ctx context.Context, id string) (domain.Identity, error)
	List(ctx context.Context) ([]domain.Identity, error)
}

// Notifier fans events out to live connections. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, identity string, event domain.Event)
}

// Clock is injected so tests can control time.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}

// IDGenerator returns a new id with the given prefix.
type IDGenerator func(prefix string) string
