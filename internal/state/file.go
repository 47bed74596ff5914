package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"energy-billing/internal/accounting"
	"energy-billing/internal/atomicfile"
)

// FileStore keeps the document as a JSON file, replaced atomically on save.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(_ context.Context) (*accounting.State, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return accounting.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state %s: %w", f.path, err)
	}
	s, err := accounting.DecodeState(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.path, err)
	}
	return s, nil
}

func (f *FileStore) Save(_ context.Context, s *accounting.State) error {
	raw, err := s.Encode()
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return atomicfile.Write(f.path, raw, 0o644)
}

func (f *FileStore) Close() error { return nil }
