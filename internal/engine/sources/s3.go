package sources

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/infracollect/xlunlock/internal/engine"
)

const S3SourceKind = "s3"

// S3Downloader is an interface for downloading objects from S3.
// This allows for easy mocking in tests.
type S3Downloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*manager.Downloader)) (int64, error)
}

// S3Source downloads a workbook object. Parts are written straight into the
// staging file at their offsets.
type S3Source struct {
	logger     *zap.Logger
	downloader S3Downloader
	stager     *Stager
	bucket     string
	key        string
}

func NewS3Source(logger *zap.Logger, downloader S3Downloader, stager *Stager, bucket, key string) (engine.Source, error) {
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("bucket and key are required")
	}

	return &S3Source{
		logger:     logger,
		downloader: downloader,
		stager:     stager,
		bucket:     bucket,
		key:        key,
	}, nil
}

func (s *S3Source) Name() string {
	return fmt.Sprintf("%s(%s/%s)", S3SourceKind, s.bucket, s.key)
}

func (s *S3Source) Kind() string {
	return S3SourceKind
}

func (s *S3Source) Filename() string {
	return path.Base(s.key)
}

func (s *S3Source) Stage(ctx context.Context) (engine.Staged, error) {
	staged, err := s.stager.Stage(s.Filename(), func(f afero.File) error {
		_, err := s.downloader.Download(ctx, f, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key),
		})
		if err != nil {
			return fmt.Errorf("failed to download s3://%s/%s: %w", s.bucket, s.key, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("downloaded workbook",
		zap.String("bucket", s.bucket),
		zap.String("key", s.key),
		zap.Int64("size", staged.Size()),
	)
	return staged, nil
}
