package runner

import (
	"fmt"

	v1 "github.com/infracollect/xlunlock/apis/v1"
	"github.com/infracollect/xlunlock/internal/engine/sinks"
	"github.com/infracollect/xlunlock/internal/engine/sources"
)

// ResolvedSpec holds a kind identifier and the spec for that kind.
type ResolvedSpec struct {
	Kind string
	Spec any
}

// ResolveSourceSpec extracts the kind and spec from a v1.Source. Exactly one
// source type must be set.
func ResolveSourceSpec(s v1.Source) (ResolvedSpec, error) {
	var resolved []ResolvedSpec
	if s.File != nil {
		resolved = append(resolved, ResolvedSpec{Kind: sources.FileSourceKind, Spec: s.File})
	}
	if s.HTTP != nil {
		resolved = append(resolved, ResolvedSpec{Kind: sources.HTTPSourceKind, Spec: s.HTTP})
	}
	if s.S3 != nil {
		resolved = append(resolved, ResolvedSpec{Kind: sources.S3SourceKind, Spec: s.S3})
	}

	switch len(resolved) {
	case 0:
		return ResolvedSpec{}, fmt.Errorf("source %q has no type specified", s.ID)
	case 1:
		return resolved[0], nil
	default:
		return ResolvedSpec{}, fmt.Errorf("source %q has more than one type specified", s.ID)
	}
}

// ResolveSinkSpec extracts the kind and spec from the job output. Without an
// explicit sink, workbooks are written to the working directory.
func ResolveSinkSpec(output *v1.OutputSpec) (ResolvedSpec, error) {
	if output == nil || output.Sink == nil {
		return ResolvedSpec{Kind: sinks.FilesystemSinkKind, Spec: &v1.FilesystemSinkSpec{}}, nil
	}

	sink := output.Sink
	var resolved []ResolvedSpec
	if sink.Stdout != nil {
		resolved = append(resolved, ResolvedSpec{Kind: sinks.StdoutSinkKind, Spec: sink.Stdout})
	}
	if sink.Filesystem != nil {
		resolved = append(resolved, ResolvedSpec{Kind: sinks.FilesystemSinkKind, Spec: sink.Filesystem})
	}
	if sink.S3 != nil {
		resolved = append(resolved, ResolvedSpec{Kind: sinks.S3SinkKind, Spec: sink.S3})
	}

	switch len(resolved) {
	case 0:
		return ResolvedSpec{}, fmt.Errorf("invalid sink configuration: no sink type specified")
	case 1:
		return resolved[0], nil
	default:
		return ResolvedSpec{}, fmt.Errorf("invalid sink configuration: more than one sink type specified")
	}
}
