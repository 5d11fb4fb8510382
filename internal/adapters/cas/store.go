// Package cas stores export stamps and writes generated files atomically.
package cas

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sync"

	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.StampStore = (*Store)(nil)

// state is the on-disk format of the state file, keyed by build file.
type state struct {
	Exports map[string]domain.ExportStamp `json:"exports"`
}

// Store implements ports.StampStore with one JSON state file per workspace.
type Store struct {
	mu sync.RWMutex
}

// NewStore creates a new Store.
func NewStore() *Store {
	return &Store{}
}

// Get retrieves the stamp of the build file exported below root.
func (s *Store) Get(root, buildFile string) (*domain.ExportStamp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.read(root)
	if err != nil {
		return nil, err
	}
	stamp, ok := st.Exports[buildFile]
	if !ok {
		return nil, nil
	}
	return &stamp, nil
}

// Put records the stamp below root.
func (s *Store) Put(root string, stamp domain.ExportStamp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.read(root)
	if err != nil {
		return err
	}
	st.Exports[stamp.BuildFile] = stamp

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return zerr.Wrap(domain.ErrStoreMarshalFailed, err.Error())
	}

	if err := os.MkdirAll(domain.DefaultCreatorPath(root), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrStoreCreateFailed, err.Error()), "path", domain.DefaultCreatorPath(root))
	}

	path := domain.DefaultStatePath(root)
	if err := atomicWriteFile(path, data); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, err.Error()), "path", path)
	}
	return nil
}

func (s *Store) read(root string) (*state, error) {
	st := &state{Exports: make(map[string]domain.ExportStamp)}
	path := domain.DefaultStatePath(root)

	//nolint:gosec // Path is constructed from the workspace root
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return st, nil
		}
		return nil, zerr.With(zerr.Wrap(domain.ErrStoreReadFailed, err.Error()), "path", path)
	}
	if len(data) == 0 {
		return st, nil
	}

	if err := json.Unmarshal(data, st); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrStoreUnmarshalFailed, err.Error()), "path", path)
	}
	if st.Exports == nil {
		st.Exports = make(map[string]domain.ExportStamp)
	}
	return st, nil
}
