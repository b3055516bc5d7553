package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/totegamma/officechat/internal/domain"
	"github.com/totegamma/officechat/internal/infra/store"
)

// --- fakes ---

type memoryBackend struct {
	mu   sync.Mutex
	data []byte
	fail bool
}

func (m *memoryBackend) Load(ctx context.Context) ([]byte, error) { return m.data, nil }
func (m *memoryBackend) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("write failed")
	}
	m.data = data
	return nil
}

type fakeDirectory map[string]domain.Identity

func (d fakeDirectory) Lookup(ctx context.Context, id string) (domain.Identity, error) {
	identity, ok := d[id]
	if !ok {
		return domain.Identity{}, domain.NotFoundError{Resource: "user"}
	}
	return identity, nil
}

func (d fakeDirectory) List(ctx context.Context) ([]domain.Identity, error) {
	out := make([]domain.Identity, 0, len(d))
	for _, identity := range d {
		out = append(out, identity)
	}
	return out, nil
}

type sentEvent struct {
	to    string
	event domain.Event
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEvent
}

func (r *recordingNotifier) Notify(ctx context.Context, identity string, event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentEvent{to: identity, event: event})
}

func (r *recordingNotifier) of(kind domain.EventType) []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentEvent
	for _, s := range r.sent {
		if s.event.Type == kind {
			out = append(out, s)
		}
	}
	return out
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sequentialIDs() IDGenerator {
	var mu sync.Mutex
	n := 0
	return func(prefix string) string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s_%04d", prefix, n)
	}
}

// --- fixture ---

type fixture struct {
	backend  *memoryBackend
	store    *store.Store
	dir      fakeDirectory
	notifier *recordingNotifier
	clock    *fakeClock
	ids      IDGenerator
}

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := &memoryBackend{}
	s, err := store.Open(context.Background(), backend)
	require.NoError(t, err)

	return &fixture{
		backend: backend,
		store:   s,
		dir: fakeDirectory{
			"alice": {ID: "alice", DisplayName: "Alice", Role: domain.RoleUser},
			"bob":   {ID: "bob", DisplayName: "Bob", Role: domain.RoleUser},
			"carol": {ID: "carol", DisplayName: "Carol", Role: domain.RoleUser},
			"root":  {ID: "root", DisplayName: "Admin", Role: domain.RoleAdmin},
		},
		notifier: &recordingNotifier{},
		clock:    &fakeClock{now: t0},
		ids:      sequentialIDs(),
	}
}

func (f *fixture) messages() *MessageUsecase {
	return NewMessageUsecase(f.store, f.dir, f.notifier, f.clock.Now, f.ids)
}

func (f *fixture) notes() *NoteUsecase {
	return NewNoteUsecase(f.store, f.dir, f.clock.Now, f.ids)
}

func (f *fixture) scheduler() *Scheduler {
	return NewScheduler(f.store, f.notifier, f.clock.Now, f.ids)
}

func ptr[T any](v T) *T { return &v }
