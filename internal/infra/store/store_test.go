package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/officechat/internal/domain"
)

type memoryBackend struct {
	mu    sync.Mutex
	data  []byte
	saves int
	fail  error
}

func (m *memoryBackend) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data, nil
}

func (m *memoryBackend) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.data = append([]byte(nil), data...)
	m.saves++
	return nil
}

func addMessage(id string) Mutator {
	return func(doc *domain.Document) error {
		doc.Messages = append(doc.Messages, domain.Message{ID: id, FromID: "a", ToID: "b", Text: id, CreatedAt: time.Now()})
		return nil
	}
}

func TestOpenEmptyBackend(t *testing.T) {
	s, err := Open(context.Background(), &memoryBackend{})
	require.NoError(t, err)

	doc := s.Read()
	assert.Empty(t, doc.Messages)
	assert.Equal(t, domain.DefaultSettings(), doc.Settings)
}

func TestCommitPersistsAndPublishes(t *testing.T) {
	backend := &memoryBackend{}
	s, err := Open(context.Background(), backend)
	require.NoError(t, err)

	before := s.Read()
	doc, err := s.Commit(context.Background(), addMessage("m1"))
	require.NoError(t, err)

	assert.Len(t, doc.Messages, 1)
	assert.Len(t, s.Read().Messages, 1)
	assert.Empty(t, before.Messages, "earlier snapshot must not observe later commits")
	assert.Equal(t, 1, backend.saves)

	reopened, err := Open(context.Background(), backend)
	require.NoError(t, err)
	assert.Equal(t, "m1", reopened.Read().Messages[0].ID)
}

func TestCommitMutatorErrorAbortsWithoutWrite(t *testing.T) {
	backend := &memoryBackend{}
	s, err := Open(context.Background(), backend)
	require.NoError(t, err)

	want := domain.ValidationError{Field: "text"}
	_, err = s.Commit(context.Background(), func(doc *domain.Document) error {
		doc.Messages = append(doc.Messages, domain.Message{ID: "half"})
		return want
	})

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, s.Read().Messages)
	assert.Zero(t, backend.saves)
}

func TestCommitUnchangedDocumentSkipsWrite(t *testing.T) {
	backend := &memoryBackend{}
	s, err := Open(context.Background(), backend)
	require.NoError(t, err)

	_, err = s.Commit(context.Background(), addMessage("m1"))
	require.NoError(t, err)

	_, err = s.Commit(context.Background(), func(doc *domain.Document) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, backend.saves)
}

func TestCommitPersistenceFailureKeepsLastGoodState(t *testing.T) {
	backend := &memoryBackend{}
	s, err := Open(context.Background(), backend)
	require.NoError(t, err)

	_, err = s.Commit(context.Background(), addMessage("m1"))
	require.NoError(t, err)

	backend.fail = errors.New("disk full")
	_, err = s.Commit(context.Background(), addMessage("m2"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Len(t, s.Read().Messages, 1)

	// the queue keeps moving once the backend recovers
	backend.fail = nil
	doc, err := s.Commit(context.Background(), addMessage("m3"))
	require.NoError(t, err)
	require.Len(t, doc.Messages, 2)
	assert.Equal(t, "m3", doc.Messages[1].ID)
}

func TestConcurrentCommitsAreSerialized(t *testing.T) {
	s, err := Open(context.Background(), &memoryBackend{})
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Commit(context.Background(), func(doc *domain.Document) error {
				doc.AppendActivity(domain.ActivityEntry{ID: "x", Type: "tick"})
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, s.Read().Activity, n)
}

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "db.json")
	backend := NewFileBackend(path)

	s, err := Open(context.Background(), backend)
	require.NoError(t, err)

	_, err = s.Commit(context.Background(), addMessage("m1"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "staged temp files must not be left behind")

	reopened, err := Open(context.Background(), NewFileBackend(path))
	require.NoError(t, err)
	require.Len(t, reopened.Read().Messages, 1)
	assert.Equal(t, "m1", reopened.Read().Messages[0].ID)
}

func TestFileBackendIgnoresStaleTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")

	s, err := Open(context.Background(), NewFileBackend(path))
	require.NoError(t, err)
	_, err = s.Commit(context.Background(), addMessage("m1"))
	require.NoError(t, err)

	// simulate a crash between staging and rename
	require.NoError(t, os.WriteFile(filepath.Join(dir, TempFilePrefix+"crash"), []byte("{\"messages\":[tru"), 0o600))

	reopened, err := Open(context.Background(), NewFileBackend(path))
	require.NoError(t, err)
	assert.Len(t, reopened.Read().Messages, 1)
}

func TestFileBackendSaveFailure(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), NewFileBackend(filepath.Join(dir, "data", "db.json")))
	require.NoError(t, err)

	// the data directory is a regular file, so staging fails
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data"), []byte("x"), 0o600))

	_, err = s.Commit(context.Background(), addMessage("m1"))
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Empty(t, s.Read().Messages)
}

func TestOpenCorruptDocument(t *testing.T) {
	_, err := Open(context.Background(), &memoryBackend{data: []byte("{not json")})
	assert.Error(t, err)
}
