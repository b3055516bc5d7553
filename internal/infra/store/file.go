package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TempFilePrefix is the prefix of staged writes next to the document file.
const TempFilePrefix = "officechat-tmp-"

// FileBackend keeps the document as an indented JSON file.
type FileBackend struct {
	path string
	perm os.FileMode
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path, perm: 0o600}
}

func (b *FileBackend) Path() string {
	return b.path
}

// Load returns nil data when the file does not exist yet.
func (b *FileBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}
	return data, nil
}

func (b *FileBackend) Save(ctx context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("failed to indent document: %w", err)
	}

	return writeFileAtomic(b.path, buf.Bytes(), b.perm)
}

// writeFileAtomic stages data in a temp file in the same directory and
// renames it over filename, so readers see either the old or the new file.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)

	tmpFile, err := os.CreateTemp(dir, TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}

	return nil
}
