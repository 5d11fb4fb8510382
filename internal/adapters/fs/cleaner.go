package fs

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Cleaner = (*Cleaner)(nil)

// Cleaner removes build outputs from disk.
type Cleaner struct{}

// NewCleaner creates a new Cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// Clean removes each root-relative path below root and reports how many existed.
func (c *Cleaner) Clean(root string, paths []string) (int, error) {
	removed := 0
	for _, p := range paths {
		path := p
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, filepath.FromSlash(p))
		}
		if _, err := os.Lstat(path); err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				continue
			}
			return removed, zerr.With(zerr.Wrap(domain.ErrFailedToCleanOutput, err.Error()), "path", p)
		}
		if err := os.RemoveAll(path); err != nil {
			return removed, zerr.With(zerr.Wrap(domain.ErrFailedToCleanOutput, err.Error()), "path", p)
		}
		removed++
	}
	return removed, nil
}
