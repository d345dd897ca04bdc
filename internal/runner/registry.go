package runner

import (
	"io"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/infracollect/xlunlock/internal/engine"
	"github.com/infracollect/xlunlock/internal/engine/sinks"
	"github.com/infracollect/xlunlock/internal/engine/sources"
)

// NewRegistry returns a registry with every built-in source and sink kind.
// Local sources are read from fs and staged into the OS temp directory of
// stagingFs.
func NewRegistry(logger *zap.Logger, fs, stagingFs afero.Fs, stdout io.Writer) *engine.Registry {
	registry := engine.NewRegistry(logger)
	sources.Register(registry, fs, sources.NewStager(stagingFs, ""))
	sinks.Register(registry, stdout)
	return registry
}
