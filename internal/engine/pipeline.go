package engine

import (
	"context"
	"fmt"
	"time"
)

// SourceEntry holds a source with its ID and output name for ordered processing.
type SourceEntry struct {
	ID     string
	Output string
	Source Source
}

// Processor unlocks a single source.
type Processor interface {
	Process(ctx context.Context, entry SourceEntry) (Result, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, entry SourceEntry) (Result, error)

func (f ProcessorFunc) Process(ctx context.Context, entry SourceEntry) (Result, error) {
	return f(ctx, entry)
}

type Pipeline struct {
	name    string
	date    time.Time
	sources []SourceEntry
}

// NewPipeline creates an empty pipeline. date is the job date, in UTC.
func NewPipeline(name string, date time.Time) *Pipeline {
	return &Pipeline{
		name: name,
		date: date.UTC(),
	}
}

// AddSource appends a source. The output name defaults to the source's
// filename; IDs and output names must be unique within the pipeline.
func (p *Pipeline) AddSource(id string, output string, source Source) error {
	if output == "" {
		output = source.Filename()
	}

	for _, entry := range p.sources {
		if entry.ID == id {
			return fmt.Errorf("source %s already exists", id)
		}
		if entry.Output == output {
			return fmt.Errorf("source %s writes to %s, already used by source %s", id, output, entry.ID)
		}
	}

	p.sources = append(p.sources, SourceEntry{ID: id, Output: output, Source: source})
	return nil
}

func (p *Pipeline) Name() string {
	return p.name
}

func (p *Pipeline) Date() time.Time {
	return p.date
}

func (p *Pipeline) Sources() []SourceEntry {
	return p.sources
}

// Run processes sources in order and stops at the first failure.
func (p *Pipeline) Run(ctx context.Context, processor Processor) ([]Result, error) {
	results := make([]Result, 0, len(p.sources))

	for _, entry := range p.sources {
		// Check context cancellation before each source
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled while running pipeline at source '%s': %w", entry.ID, err)
		}

		result, err := processor.Process(ctx, entry)
		if err != nil {
			return nil, fmt.Errorf("failed to process source '%s': %w", entry.ID, err)
		}

		result.ID = entry.ID
		results = append(results, result)
	}

	return results, nil
}
