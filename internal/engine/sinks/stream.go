package sinks

import (
	"context"
	"fmt"
	"io"

	"github.com/infracollect/xlunlock/internal/engine"
)

// StreamSink copies a single workbook to w. A second write is rejected:
// concatenated zip archives are not readable as one workbook.
type StreamSink struct {
	w       io.Writer
	written string
}

func NewStreamSink(w io.Writer) engine.Sink {
	return &StreamSink{w: w}
}

func (s *StreamSink) Name() string {
	return "stream"
}

func (s *StreamSink) Kind() string {
	return "stream"
}

func (s *StreamSink) Write(ctx context.Context, path string, data io.Reader) error {
	if s.written != "" {
		return fmt.Errorf("stream sink already received %s, cannot also write %s", s.written, path)
	}
	s.written = path

	if _, err := io.Copy(s.w, data); err != nil {
		return fmt.Errorf("failed to copy data: %w", err)
	}
	return nil
}

func (s *StreamSink) Close(ctx context.Context) error {
	return nil
}
