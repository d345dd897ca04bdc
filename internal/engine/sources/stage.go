package sources

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/infracollect/xlunlock/internal/engine"
)

// Stager creates scratch copies of workbooks on fs. Staged files are removed
// when closed.
type Stager struct {
	fs  afero.Fs
	dir string
}

// NewStager stages into dir on fs. An empty dir uses the OS temp directory.
func NewStager(fs afero.Fs, dir string) *Stager {
	return &Stager{fs: fs, dir: dir}
}

// Stage creates a temp file named after filename and calls fill to populate it.
// The temp file is removed if fill fails.
func (s *Stager) Stage(filename string, fill func(f afero.File) error) (_ engine.Staged, err error) {
	file, err := afero.TempFile(s.fs, s.dir, "xlunlock-*-"+filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}

	staged := &stagedFile{fs: s.fs, file: file}
	defer func() {
		if err != nil {
			err = errors.Join(err, staged.Close())
		}
	}()

	if err := fill(file); err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat staging file: %w", err)
	}
	staged.size = info.Size()

	return staged, nil
}

type stagedFile struct {
	fs   afero.Fs
	file afero.File
	size int64
}

func (s *stagedFile) ReadAt(p []byte, off int64) (int, error) {
	return s.file.ReadAt(p, off)
}

func (s *stagedFile) Size() int64 {
	return s.size
}

func (s *stagedFile) Close() error {
	name := s.file.Name()
	return errors.Join(s.file.Close(), s.fs.Remove(name))
}

// copyInto is a fill function that copies r into the staging file.
func copyInto(r io.Reader) func(afero.File) error {
	return func(f afero.File) error {
		if _, err := io.Copy(f, r); err != nil {
			return fmt.Errorf("failed to copy workbook: %w", err)
		}
		return nil
	}
}
