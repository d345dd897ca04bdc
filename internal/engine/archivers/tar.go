package archivers

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/infracollect/xlunlock/internal/engine"
)

// CompressionType defines supported compression algorithms.
type CompressionType string

const (
	CompressionGzip CompressionType = "gzip"
	CompressionZstd CompressionType = "zstd"
	CompressionNone CompressionType = "none"
)

// TarArchiver bundles unlocked workbooks into a tar archive with optional
// compression. Workbook entries are already stored uncompressed inside their
// zip containers, so compressing the bundle recovers most of the size.
type TarArchiver struct {
	buf         *bytes.Buffer
	compressor  io.WriteCloser
	tarWriter   *tar.Writer
	compression CompressionType
	modTime     time.Time
	names       map[string]struct{}
	closed      bool
}

// NewTarArchiver creates a new tar archiver with the specified compression.
// Supported compression types: "gzip", "zstd", "none".
// If compression is empty, defaults to "zstd". Every entry gets modTime.
func NewTarArchiver(compression string, modTime time.Time) (engine.Archiver, error) {
	ct := CompressionType(compression)
	if ct == "" {
		ct = CompressionZstd
	}

	buf := new(bytes.Buffer)
	var compressor io.WriteCloser
	var err error

	switch ct {
	case CompressionGzip:
		compressor = gzip.NewWriter(buf)
	case CompressionZstd:
		compressor, err = zstd.NewWriter(buf)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
	case CompressionNone:
		compressor = &nopWriteCloser{buf}
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", compression)
	}

	return &TarArchiver{
		buf:         buf,
		compressor:  compressor,
		tarWriter:   tar.NewWriter(compressor),
		compression: ct,
		modTime:     modTime,
		names:       make(map[string]struct{}),
	}, nil
}

// AddFile adds a workbook to the tar archive.
func (a *TarArchiver) AddFile(ctx context.Context, filename string, data io.Reader) error {
	if a.closed {
		return fmt.Errorf("archiver is closed")
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	if _, ok := a.names[filename]; ok {
		return fmt.Errorf("archive already contains %s", filename)
	}

	// tar headers need the size up front
	content, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read workbook data: %w", err)
	}

	header := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     filename,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  a.modTime,
		Format:   tar.FormatPAX,
	}

	if err := a.tarWriter.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", filename, err)
	}

	if _, err := a.tarWriter.Write(content); err != nil {
		return fmt.Errorf("failed to write tar content for %s: %w", filename, err)
	}

	a.names[filename] = struct{}{}
	return nil
}

// Close finalizes the tar archive and returns a reader for the complete archive data.
func (a *TarArchiver) Close() (io.Reader, error) {
	if a.closed {
		return nil, fmt.Errorf("archiver already closed")
	}
	a.closed = true

	if err := a.tarWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close tar writer: %w", err)
	}

	if err := a.compressor.Close(); err != nil {
		return nil, fmt.Errorf("failed to close compressor: %w", err)
	}

	return bytes.NewReader(a.buf.Bytes()), nil
}

// Extension returns the file extension for this archive type.
func (a *TarArchiver) Extension() string {
	switch a.compression {
	case CompressionGzip:
		return ".tar.gz"
	case CompressionZstd:
		return ".tar.zst"
	default:
		return ".tar"
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (n *nopWriteCloser) Close() error {
	return nil
}
