package sinks

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/infracollect/xlunlock/internal/engine"
)

// ArchiveSink wraps a sink and bundles every workbook written to it into one
// archive. On Close, it finalizes the archive and writes a single file to the
// inner sink.
type ArchiveSink struct {
	inner       engine.Sink
	archiver    engine.Archiver
	archiveName string
}

// NewArchiveSink creates a new archive sink that wraps the given inner sink.
// The archiver's extension is appended to archiveName unless already present.
func NewArchiveSink(inner engine.Sink, archiver engine.Archiver, archiveName string) *ArchiveSink {
	if !strings.HasSuffix(archiveName, archiver.Extension()) {
		archiveName += archiver.Extension()
	}

	return &ArchiveSink{
		inner:       inner,
		archiver:    archiver,
		archiveName: archiveName,
	}
}

func (s *ArchiveSink) Name() string {
	return fmt.Sprintf("archive(%s)->%s", s.archiveName, s.inner.Name())
}

func (s *ArchiveSink) Kind() string {
	return "archive"
}

// ArchiveName is the name the bundle is written under in the inner sink.
func (s *ArchiveSink) ArchiveName() string {
	return s.archiveName
}

// Write adds a workbook to the archive.
func (s *ArchiveSink) Write(ctx context.Context, path string, data io.Reader) error {
	if err := s.archiver.AddFile(ctx, path, data); err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", path, err)
	}
	return nil
}

// Close finalizes the archive and writes it to the inner sink.
func (s *ArchiveSink) Close(ctx context.Context) error {
	reader, err := s.archiver.Close()
	if err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	if err := s.inner.Write(ctx, s.archiveName, reader); err != nil {
		return fmt.Errorf("failed to write archive to sink: %w", err)
	}

	if err := s.inner.Close(ctx); err != nil {
		return fmt.Errorf("failed to close inner sink: %w", err)
	}

	return nil
}
