package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vinaxue/cs5510-project3/internal/errs"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

// Store owns every index handle for one data directory and the
// directory's exclusive lock. Opening the same directory twice fails
// with StorageLocked.
type Store struct {
	dir      string
	lockPath string
	lockFile *os.File

	mu      sync.Mutex
	indexes map[string]*Index // "table__column" -> handle
}

func indexFileName(table, column string) string {
	return fmt.Sprintf("%s__%s.idx", table, column)
}

// Open acquires the data directory's lock file and returns an empty
// Store ready to open or create individual indexes in it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindStorageCorrupt, err, "failed to create data directory %s", dir)
	}
	lockPath := filepath.Join(dir, "LOCK")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errs.New(errs.KindStorageLocked, "data directory %s is already open by another engine instance", dir)
		}
		return nil, errs.Wrap(errs.KindStorageCorrupt, err, "failed to create lock file in %s", dir)
	}
	return &Store{dir: dir, lockPath: lockPath, lockFile: f, indexes: make(map[string]*Index)}, nil
}

// Close releases every open index handle and the directory lock.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, ix := range s.indexes {
		if err := ix.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.indexes = map[string]*Index{}
	if s.lockFile != nil {
		s.lockFile.Close()
		os.Remove(s.lockPath)
		s.lockFile = nil
	}
	return firstErr
}

// OpenIndex opens (creating if absent) the named index, caching the
// handle for the Store's lifetime.
func (s *Store) OpenIndex(table, column string, keyKind types.Kind) (*Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := table + "__" + column
	if ix, ok := s.indexes[key]; ok {
		return ix, nil
	}
	path := filepath.Join(s.dir, indexFileName(table, column))
	ix, err := openIndexFile(path, keyKind)
	if err != nil {
		return nil, err
	}
	s.indexes[key] = ix
	return ix, nil
}

// DropIndex closes and deletes the named index's file.
func (s *Store) DropIndex(table, column string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := table + "__" + column
	ix, ok := s.indexes[key]
	if !ok {
		path := filepath.Join(s.dir, indexFileName(table, column))
		return os.Remove(path)
	}
	delete(s.indexes, key)
	return ix.Remove()
}

// HasIndex reports whether the named index is currently open.
func (s *Store) HasIndex(table, column string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.indexes[table+"__"+column]
	return ok
}

func (s *Store) CatalogPath() string {
	return filepath.Join(s.dir, "catalog.json")
}
