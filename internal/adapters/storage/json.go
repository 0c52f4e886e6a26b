package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/okian/rollbot/internal/domain/model"
)

// JSONStore keeps the documents as files in one directory. Each file is
// replaced atomically through a temp file and rename.
type JSONStore struct {
	mu  sync.Mutex
	dir string
}

// NewJSONStore creates dir if needed.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrPersistence, dir, err)
	}
	return &JSONStore{dir: dir}, nil
}

// Dir returns the directory holding the documents.
func (s *JSONStore) Dir() string { return s.dir }

// Load reads both files. Missing files load as empty documents.
func (s *JSONStore) Load(ctx context.Context) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.NewSnapshot(), err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.read(UsersDocument)
	if err != nil {
		return model.NewSnapshot(), err
	}
	characters, err := s.read(CharactersDocument)
	if err != nil {
		return model.NewSnapshot(), err
	}
	snap, err := decode(users, characters)
	if err != nil {
		return model.NewSnapshot(), fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return snap, nil
}

// Save writes both files.
func (s *JSONStore) Save(ctx context.Context, snap model.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	users, characters, err := encode(snap)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(UsersDocument, users); err != nil {
		return err
	}
	if err := s.write(CharactersDocument, characters); err != nil {
		return err
	}
	return nil
}

// Close is a no-op.
func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) read(name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrPersistence, name, err)
	}
	return b, nil
}

func (s *JSONStore) write(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: temp %s: %v", ErrPersistence, name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", ErrPersistence, name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", ErrPersistence, name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: rename %s: %v", ErrPersistence, name, err)
	}
	return nil
}
