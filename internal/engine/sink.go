package engine

import (
	"context"
	"io"
)

// Sink is a destination for unlocked workbooks.
type Sink interface {
	Named
	Closer
	// Write stores data under path, relative to the sink's root.
	Write(ctx context.Context, path string, data io.Reader) error
}
