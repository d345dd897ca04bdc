package engine

import (
	"context"
	"io"
)

// Archiver bundles unlocked workbooks into a single archive file.
type Archiver interface {
	// AddFile adds a workbook to the bundle under filename.
	AddFile(ctx context.Context, filename string, data io.Reader) error

	// Close finalizes the bundle and returns a reader for the complete archive data.
	Close() (io.Reader, error)

	// Extension returns the file extension for this archive type (e.g., ".tar.zst").
	Extension() string
}
