package sinks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	v1 "github.com/infracollect/xlunlock/apis/v1"
	"github.com/infracollect/xlunlock/internal/engine"
	s3client "github.com/infracollect/xlunlock/internal/integrations/s3"
)

const (
	StdoutSinkKind     = "stdout"
	FilesystemSinkKind = "filesystem"
	S3SinkKind         = "s3"
)

// Register adds the stdout, filesystem and s3 sink kinds. The stdout sink
// writes to stdout.
func Register(registry *engine.Registry, stdout io.Writer) {
	registry.RegisterSink(
		StdoutSinkKind,
		engine.NewSinkFactory(StdoutSinkKind, func(_ context.Context, _ *zap.Logger, _ *v1.StdoutSinkSpec) (engine.Sink, error) {
			return NewStreamSink(stdout), nil
		}),
	)

	registry.RegisterSink(
		FilesystemSinkKind,
		engine.NewSinkFactory(FilesystemSinkKind, newFilesystemSink),
	)

	registry.RegisterSink(
		S3SinkKind,
		engine.NewSinkFactory(S3SinkKind, func(ctx context.Context, _ *zap.Logger, spec *v1.S3SinkSpec) (engine.Sink, error) {
			cfg := S3Config{
				Config: s3client.ConfigFromSpec(spec.Region, spec.Endpoint, spec.ForcePathStyle, spec.Credentials),
				Bucket: spec.Bucket,
			}
			if spec.Prefix != nil {
				cfg.Prefix = *spec.Prefix
			}
			return NewS3Sink(ctx, cfg)
		}),
	)
}

// newFilesystemSink defaults the path to the working directory.
func newFilesystemSink(_ context.Context, _ *zap.Logger, spec *v1.FilesystemSinkSpec) (engine.Sink, error) {
	var path, prefix string
	if spec.Path != nil {
		path = *spec.Path
	}
	if spec.Prefix != nil {
		prefix = *spec.Prefix
	}

	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = wd
	}

	return NewFilesystemSinkFromPath(filepath.Join(path, prefix), spec.Overwrite)
}
