package mount

import (
	goerrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mwantia/objfs/data"
)

// StagingFile is a local temporary file shadowing one remote object
// while a channel has it open.
type StagingFile struct {
	*os.File
	path string
}

func NewStagingFile(dir string) (*StagingFile, error) {
	path := filepath.Join(dir, fmt.Sprintf("objfs-%s.tmp", data.NewID()))

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, err
	}

	return &StagingFile{
		File: file,
		path: path,
	}, nil
}

func (s *StagingFile) Path() string {
	return s.path
}

func (s *StagingFile) Size() (int64, error) {
	info, err := s.File.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Fill replaces the content with everything read from r and rewinds.
func (s *StagingFile) Fill(r io.Reader) (int64, error) {
	if err := s.File.Truncate(0); err != nil {
		return 0, err
	}
	if _, err := s.File.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	n, err := io.Copy(s.File, r)
	if err != nil {
		return n, err
	}

	_, err = s.File.Seek(0, io.SeekStart)
	return n, err
}

// Remove closes and deletes the file. Removing it twice is not an error.
func (s *StagingFile) Remove() error {
	closeErr := s.File.Close()
	if goerrors.Is(closeErr, os.ErrClosed) {
		closeErr = nil
	}

	removeErr := os.Remove(s.path)
	if goerrors.Is(removeErr, fs.ErrNotExist) {
		removeErr = nil
	}

	return goerrors.Join(closeErr, removeErr)
}
