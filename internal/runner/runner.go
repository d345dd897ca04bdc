package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	v1 "github.com/infracollect/xlunlock/apis/v1"
	"github.com/infracollect/xlunlock/internal/engine"
	"github.com/infracollect/xlunlock/internal/engine/archivers"
	"github.com/infracollect/xlunlock/internal/engine/sinks"
	"github.com/infracollect/xlunlock/internal/transcode"
)

// Runner unlocks every source of a job and writes the results to its sink.
type Runner struct {
	logger     *zap.Logger
	job        v1.UnlockJob
	pipeline   *engine.Pipeline
	transcoder *transcode.Transcoder
	sink       engine.Sink
}

// New builds the pipeline and sink of job from the kinds in registry. job is
// expected to be validated and its templates expanded with the same date.
func New(ctx context.Context, logger *zap.Logger, registry *engine.Registry, job v1.UnlockJob, date time.Time) (*Runner, error) {
	logger.Info("creating runner", zap.String("job_name", job.Metadata.Name))

	if err := checkOutput(job); err != nil {
		return nil, err
	}

	var encoding string
	if job.Spec.Policy != nil {
		encoding = job.Spec.Policy.Encoding
	}
	policy, err := transcode.ParseEncodingPolicy(encoding)
	if err != nil {
		return nil, err
	}

	pipeline, err := createPipeline(ctx, logger.Named("pipeline"), registry, job, date)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	sink, err := buildSink(ctx, registry, job, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to build sink: %w", err)
	}

	return &Runner{
		logger:     logger,
		job:        job,
		pipeline:   pipeline,
		transcoder: transcode.New(logger.Named("transcoder"), transcode.WithEncodingPolicy(policy)),
		sink:       sink,
	}, nil
}

// checkOutput rejects outputs that cannot hold the job's workbooks.
func checkOutput(job v1.UnlockJob) error {
	output := job.Spec.Output
	if output == nil || output.Sink == nil || output.Sink.Stdout == nil {
		return nil
	}

	if output.Archive != nil {
		return fmt.Errorf("stdout sink cannot be used with archive configuration")
	}
	if len(job.Spec.Sources) > 1 {
		return fmt.Errorf("stdout sink accepts a single source, job has %d", len(job.Spec.Sources))
	}
	return nil
}

func createPipeline(ctx context.Context, logger *zap.Logger, registry *engine.Registry, job v1.UnlockJob, date time.Time) (*engine.Pipeline, error) {
	pipeline := engine.NewPipeline(job.Metadata.Name, date)

	for _, spec := range job.Spec.Sources {
		resolved, err := ResolveSourceSpec(spec)
		if err != nil {
			return nil, err
		}

		source, err := registry.CreateSource(ctx, resolved.Kind, resolved.Spec)
		if err != nil {
			return nil, fmt.Errorf("failed to create source %s: %w", spec.ID, err)
		}

		if err := pipeline.AddSource(spec.ID, spec.Output, source); err != nil {
			return nil, err
		}

		logger.Debug("added source", zap.String("source_id", spec.ID), zap.String("source", source.Name()))
	}

	return pipeline, nil
}

// buildSink creates the configured sink and wraps it in an ArchiveSink when
// the job asks for a bundle. Bundle entries are stamped with the job date.
func buildSink(ctx context.Context, registry *engine.Registry, job v1.UnlockJob, pipeline *engine.Pipeline) (engine.Sink, error) {
	resolved, err := ResolveSinkSpec(job.Spec.Output)
	if err != nil {
		return nil, err
	}

	sink, err := registry.CreateSink(ctx, resolved.Kind, resolved.Spec)
	if err != nil {
		return nil, err
	}

	if job.Spec.Output == nil || job.Spec.Output.Archive == nil {
		return sink, nil
	}

	archive := job.Spec.Output.Archive
	archiver, err := archivers.NewTarArchiver(archive.Compression, pipeline.Date())
	if err != nil {
		return nil, fmt.Errorf("failed to create tar archiver: %w", err)
	}

	name := archive.Name
	if name == "" {
		name = job.Metadata.Name
	}

	return sinks.NewArchiveSink(sink, archiver, name), nil
}

// Run unlocks every source in order and closes the sink once all of them
// succeeded. An archive bundle is only written on success.
func (r *Runner) Run(ctx context.Context) ([]engine.Result, error) {
	r.logger.Info("running job",
		zap.String("job_name", r.pipeline.Name()),
		zap.Int("sources", len(r.pipeline.Sources())),
		zap.String("sink", r.sink.Name()),
	)

	results, err := r.pipeline.Run(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to run pipeline: %w", err)
	}

	if err := r.sink.Close(ctx); err != nil {
		return nil, fmt.Errorf("failed to close sink: %w", err)
	}

	if bundle, ok := r.sink.(*sinks.ArchiveSink); ok {
		r.logger.Info("wrote bundle", zap.String("archive", bundle.ArchiveName()), zap.Int("workbooks", len(results)))
	}

	return results, nil
}

// Process stages one source, unlocks it in memory and writes it to the sink.
func (r *Runner) Process(ctx context.Context, entry engine.SourceEntry) (_ engine.Result, err error) {
	logger := r.logger.With(zap.String("source_id", entry.ID), zap.String("source", entry.Source.Name()))

	staged, err := entry.Source.Stage(ctx)
	if err != nil {
		return engine.Result{}, fmt.Errorf("failed to stage workbook: %w", err)
	}
	defer func() {
		if cerr := staged.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to remove staged workbook: %w", cerr))
		}
	}()

	if err := transcode.Sniff(staged); err != nil {
		return engine.Result{}, err
	}

	var buf bytes.Buffer
	summary, err := r.transcoder.Transcode(ctx, staged, staged.Size(), &buf)
	if err != nil {
		return engine.Result{}, err
	}

	size := int64(buf.Len())
	if err := r.sink.Write(ctx, entry.Output, &buf); err != nil {
		return engine.Result{}, fmt.Errorf("failed to write %s: %w", entry.Output, err)
	}

	logger.Info("unlocked workbook",
		zap.String("output", entry.Output),
		zap.Int("entries", summary.Entries),
		zap.Int("transformed", summary.Transformed),
		zap.Int("written", summary.Written()),
		zap.Int("removed", summary.TotalRemoved()),
		zap.Strings("skipped", summary.SkippedNames()),
		zap.String("size", humanize.IBytes(uint64(size))),
	)

	return engine.Result{
		Output: entry.Output,
		Bytes:  size,
		Meta:   summaryMeta(summary),
	}, nil
}

func summaryMeta(summary transcode.Summary) map[string]string {
	meta := map[string]string{
		"entries":     strconv.Itoa(summary.Entries),
		"transformed": strconv.Itoa(summary.Transformed),
		"written":     strconv.Itoa(summary.Written()),
		"removed":     strconv.Itoa(summary.TotalRemoved()),
	}
	if len(summary.Skipped) > 0 {
		meta["skipped"] = strings.Join(summary.SkippedNames(), ",")
	}
	return meta
}
