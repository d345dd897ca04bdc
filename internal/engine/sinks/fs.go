package sinks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/infracollect/xlunlock/internal/engine"
)

// FilesystemSink writes workbooks below the root of fs. Each file is written
// to a temporary sibling first and renamed into place once complete, so a
// failed run never leaves a truncated workbook at the destination.
type FilesystemSink struct {
	fs        afero.Fs
	overwrite bool
}

func NewFilesystemSink(fs afero.Fs, overwrite bool) engine.Sink {
	return &FilesystemSink{fs: fs, overwrite: overwrite}
}

func NewFilesystemSinkFromPath(path string, overwrite bool) (engine.Sink, error) {
	cleanPath := filepath.Clean(path)

	if err := os.MkdirAll(cleanPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", cleanPath, err)
	}

	return NewFilesystemSink(afero.NewBasePathFs(afero.NewOsFs(), cleanPath), overwrite), nil
}

func (s *FilesystemSink) Name() string {
	return fmt.Sprintf("filesystem(%s)", s.fs.Name())
}

func (s *FilesystemSink) Kind() string {
	return "filesystem"
}

func (s *FilesystemSink) Write(ctx context.Context, path string, data io.Reader) (err error) {
	if !s.overwrite {
		exists, err := afero.Exists(s.fs, path)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", path, err)
		}
		if exists {
			return fmt.Errorf("destination %s already exists", path)
		}
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			err = errors.Join(err, s.fs.Remove(tmpName))
		}
	}()

	if _, err = io.Copy(tmp, data); err != nil {
		return errors.Join(fmt.Errorf("failed to write to file: %w", err), tmp.Close())
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err = s.fs.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	return nil
}

func (s *FilesystemSink) Close(ctx context.Context) error {
	return nil
}
