package media

import (
	"errors"
	"io/fs"
	"os"
)

// StagedFile is a transient, locally held blob produced by the upload
// transport. It is owned exclusively by the request handling the write and
// must not outlive it: Promote discards it on every branch.
type StagedFile struct {
	Path        string
	Name        string
	ContentType string
	Size        int64
}

// Open opens the staged bytes for reading.
func (f *StagedFile) Open() (*os.File, error) {
	return os.Open(f.Path)
}

// Discard removes the staged file from local disk. Removing an
// already-removed file is not an error.
func (f *StagedFile) Discard() error {
	err := os.Remove(f.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
