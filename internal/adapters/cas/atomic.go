package cas

import (
	"os"
	"path/filepath"

	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.FileWriter = (*AtomicWriter)(nil)

// AtomicWriter writes files through a synced temporary file in the same directory
// that is renamed over the destination.
type AtomicWriter struct{}

// NewAtomicWriter creates a new AtomicWriter.
func NewAtomicWriter() *AtomicWriter {
	return &AtomicWriter{}
}

// WriteFile atomically replaces path with data.
func (w *AtomicWriter) WriteFile(path string, data []byte) error {
	if err := atomicWriteFile(path, data); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrBuildFileWriteFailed, err.Error()), "path", path)
	}
	return nil
}

// atomicWriteFile writes data to a file atomically by writing to a temp file and renaming it.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()

	// Clean up temp file on error
	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
