package engine

import "context"

type Named interface {
	Name() string
	Kind() string
}

type Closer interface {
	Close(context.Context) error
}

const (
	// ISO8601Basic is a URL-safe timestamp format without colons.
	// Used for S3 keys and file names derived from the job date.
	ISO8601Basic = "20060102T150405Z"
)
