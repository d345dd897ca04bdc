package sources

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/infracollect/xlunlock/internal/engine"
)

const FileSourceKind = "file"

// FileSource stages a workbook from a filesystem. The original is only held
// open for the copy, so Excel or another process may keep it locked meanwhile.
type FileSource struct {
	logger *zap.Logger
	fs     afero.Fs
	stager *Stager
	path   string
}

func NewFileSource(logger *zap.Logger, fs afero.Fs, stager *Stager, path string) (engine.Source, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	return &FileSource{
		logger: logger,
		fs:     fs,
		stager: stager,
		path:   filepath.Clean(path),
	}, nil
}

func (s *FileSource) Name() string {
	return fmt.Sprintf("%s(%s)", FileSourceKind, s.path)
}

func (s *FileSource) Kind() string {
	return FileSourceKind
}

func (s *FileSource) Filename() string {
	return filepath.Base(s.path)
}

func (s *FileSource) Stage(ctx context.Context) (engine.Staged, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := s.fs.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer src.Close()

	staged, err := s.stager.Stage(s.Filename(), copyInto(src))
	if err != nil {
		return nil, fmt.Errorf("failed to stage %s: %w", s.path, err)
	}

	s.logger.Debug("staged workbook", zap.String("path", s.path), zap.Int64("size", staged.Size()))
	return staged, nil
}
