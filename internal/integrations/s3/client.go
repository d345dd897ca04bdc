// Package s3 builds S3 clients shared by the s3 source and sink.
package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	v1 "github.com/infracollect/xlunlock/apis/v1"
)

// Config contains connection settings for S3-compatible object storage.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// NewClient loads the default AWS configuration chain and applies cfg on top of it.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	// Explicit credentials take precedence over the environment and shared config
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)

	// Custom endpoint for S3-compatible services (R2, MinIO, etc.)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	// Path-style addressing for MinIO and some S3-compatible services
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, s3Opts...), nil
}

// ConfigFromSpec maps the optional job fields onto a Config.
func ConfigFromSpec(region, endpoint *string, forcePathStyle bool, creds *v1.S3Credentials) Config {
	cfg := Config{ForcePathStyle: forcePathStyle}
	if region != nil {
		cfg.Region = *region
	}
	if endpoint != nil {
		cfg.Endpoint = *endpoint
	}
	if creds != nil {
		cfg.AccessKeyID = creds.AccessKeyID
		cfg.SecretAccessKey = creds.SecretAccessKey
	}
	return cfg
}
