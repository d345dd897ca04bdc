package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

type SourceFactory func(ctx context.Context, logger *zap.Logger, input any) (Source, error)
type SinkFactory func(ctx context.Context, logger *zap.Logger, input any) (Sink, error)

// TypedSourceFactory is a strongly-typed source factory.
// T is the concrete spec type (e.g. v1.FileSource).
type TypedSourceFactory[T any] func(ctx context.Context, logger *zap.Logger, spec T) (Source, error)

// TypedSinkFactory is a strongly-typed sink factory.
// T is the concrete spec type (e.g. v1.S3SinkSpec).
type TypedSinkFactory[T any] func(ctx context.Context, logger *zap.Logger, spec T) (Sink, error)

// NewSourceFactory wraps a typed source factory into a generic SourceFactory.
// It centralizes the unsafe cast from any → T and provides a clear error if the type mismatches.
func NewSourceFactory[T any](kind string, f TypedSourceFactory[T]) SourceFactory {
	return func(ctx context.Context, logger *zap.Logger, input any) (Source, error) {
		spec, ok := input.(T)
		if !ok {
			return nil, fmt.Errorf("invalid source spec for kind %q: %T", kind, input)
		}
		return f(ctx, logger, spec)
	}
}

// NewSinkFactory wraps a typed sink factory into a generic SinkFactory.
func NewSinkFactory[T any](kind string, f TypedSinkFactory[T]) SinkFactory {
	return func(ctx context.Context, logger *zap.Logger, input any) (Sink, error) {
		spec, ok := input.(T)
		if !ok {
			return nil, fmt.Errorf("invalid sink spec for kind %q: %T", kind, input)
		}
		return f(ctx, logger, spec)
	}
}

// UnsupportedTypeError is returned when a source or sink kind is not registered.
type UnsupportedTypeError struct {
	Category  string   // "source" or "sink"
	Kind      string   // the requested kind
	Available []string // registered kinds
}

func (e *UnsupportedTypeError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unsupported %s type %q: no %ss registered", e.Category, e.Kind, e.Category)
	}
	return fmt.Sprintf("unsupported %s type %q (available: %v)", e.Category, e.Kind, e.Available)
}

type Registry struct {
	mu      sync.RWMutex
	sources map[string]SourceFactory
	sinks   map[string]SinkFactory
	logger  *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		sources: make(map[string]SourceFactory),
		sinks:   make(map[string]SinkFactory),
		logger:  logger,
	}
}

func (r *Registry) RegisterSource(kind string, factory SourceFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[kind] = factory
}

func (r *Registry) RegisterSink(kind string, factory SinkFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[kind] = factory
}

func (r *Registry) CreateSource(ctx context.Context, kind string, spec any) (Source, error) {
	r.mu.RLock()
	factory, ok := r.sources[kind]
	available := sortedKeys(r.sources)
	r.mu.RUnlock()
	if !ok {
		return nil, &UnsupportedTypeError{Category: "source", Kind: kind, Available: available}
	}
	return factory(ctx, r.logger.Named(kind), spec)
}

func (r *Registry) CreateSink(ctx context.Context, kind string, spec any) (Sink, error) {
	r.mu.RLock()
	factory, ok := r.sinks[kind]
	available := sortedKeys(r.sinks)
	r.mu.RUnlock()
	if !ok {
		return nil, &UnsupportedTypeError{Category: "sink", Kind: kind, Available: available}
	}
	return factory(ctx, r.logger.Named(kind), spec)
}

func (r *Registry) AvailableSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.sources)
}

func (r *Registry) AvailableSinks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.sinks)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
