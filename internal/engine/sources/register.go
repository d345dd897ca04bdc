package sources

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	v1 "github.com/infracollect/xlunlock/apis/v1"
	"github.com/infracollect/xlunlock/internal/engine"
	xhttp "github.com/infracollect/xlunlock/internal/integrations/http"
	s3client "github.com/infracollect/xlunlock/internal/integrations/s3"
)

// Register adds the file, http and s3 source kinds. Local paths are resolved
// against fs and every source stages through stager.
func Register(registry *engine.Registry, fs afero.Fs, stager *Stager) {
	registry.RegisterSource(
		FileSourceKind,
		engine.NewSourceFactory(FileSourceKind, func(_ context.Context, logger *zap.Logger, spec *v1.FileSource) (engine.Source, error) {
			return NewFileSource(logger, fs, stager, spec.Path)
		}),
	)

	registry.RegisterSource(
		HTTPSourceKind,
		engine.NewSourceFactory(HTTPSourceKind, func(_ context.Context, logger *zap.Logger, spec *v1.HTTPSource) (engine.Source, error) {
			cfg := xhttp.Config{Insecure: spec.Insecure}
			if spec.Timeout != nil {
				cfg.Timeout = time.Duration(*spec.Timeout) * time.Second
			}
			return NewHTTPSource(logger, xhttp.NewClient(cfg), stager, spec.URL, spec.Headers)
		}),
	)

	registry.RegisterSource(
		S3SourceKind,
		engine.NewSourceFactory(S3SourceKind, func(ctx context.Context, logger *zap.Logger, spec *v1.S3Source) (engine.Source, error) {
			client, err := s3client.NewClient(ctx, s3client.ConfigFromSpec(spec.Region, spec.Endpoint, spec.ForcePathStyle, spec.Credentials))
			if err != nil {
				return nil, err
			}
			return NewS3Source(logger, manager.NewDownloader(client), stager, spec.Bucket, spec.Key)
		}),
	)
}
