package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/officechat/internal/domain"
)

var tracer = otel.Tracer("store")

// Backend persists the encoded document. Save must replace the previous
// durable record atomically: either all of data is durable or none of it is.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// Mutator edits a private copy of the document. Returning an error aborts the commit.
type Mutator = func(doc *domain.Document) error

// Store is the single writer for the office document.
type Store struct {
	backend  Backend
	mu       sync.Mutex
	current  atomic.Pointer[domain.Document]
	checksum uint64
}

// Open loads the last committed document from backend, or starts from an empty one.
func Open(ctx context.Context, backend Backend) (*Store, error) {
	data, err := backend.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load document")
	}

	doc := domain.NewDocument()
	if len(data) > 0 {
		doc = &domain.Document{}
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, errors.Wrap(err, "decode document")
		}
		doc.Normalize()
	}

	s := &Store{backend: backend}
	s.current.Store(doc)
	s.checksum = xxh3.Hash(data)

	slog.InfoContext(
		ctx, "Document loaded",
		slog.Int("messages", len(doc.Messages)),
		slog.Int("notes", len(doc.Notes)),
		slog.Int("activity", len(doc.Activity)),
		slog.String("module", "store"),
	)

	return s, nil
}

// Read returns the last fully committed document. It never blocks on writers.
// The returned document is shared and must not be modified.
func (s *Store) Read() *domain.Document {
	return s.current.Load()
}

// Commit applies fn to a copy of the latest committed document and durably
// replaces it. Commits are applied one at a time in arrival order. When fn
// leaves the document unchanged nothing is written.
func (s *Store) Commit(ctx context.Context, fn Mutator) (*domain.Document, error) {
	ctx, span := tracer.Start(ctx, "Store.Commit")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Normalize()

	data, err := json.Marshal(next)
	if err != nil {
		span.RecordError(err)
		return nil, domain.PersistenceError{Err: errors.Wrap(err, "encode document")}
	}

	sum := xxh3.Hash(data)
	if sum == s.checksum {
		return s.current.Load(), nil
	}

	if err := s.backend.Save(ctx, data); err != nil {
		span.RecordError(err)
		slog.ErrorContext(
			ctx, "Failed to persist document",
			slog.String("error", err.Error()),
			slog.String("module", "store"),
		)
		return nil, domain.PersistenceError{Err: err}
	}

	s.checksum = sum
	s.current.Store(next)
	return next, nil
}
