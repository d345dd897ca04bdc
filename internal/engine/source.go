package engine

import (
	"context"
	"io"
)

// Source is a workbook to unlock. Stage copies its content to a seekable
// scratch location so the original is never held open while it is processed.
type Source interface {
	Named
	// Filename is the base name of the workbook, used to name the output.
	Filename() string
	Stage(ctx context.Context) (Staged, error)
}

// Staged is a scratch copy of a source. Close releases it.
type Staged interface {
	io.ReaderAt
	io.Closer
	Size() int64
}
