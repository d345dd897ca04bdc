package transcode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Format is the container format detected from a file's leading bytes.
type Format int

const (
	FormatUnknown Format = iota
	FormatOLE2           // compound document: legacy .xls or a password-encrypted workbook
	FormatOOXML          // zip package
)

func (f Format) String() string {
	switch f {
	case FormatOLE2:
		return "ole2"
	case FormatOOXML:
		return "ooxml"
	default:
		return "unknown"
	}
}

var (
	ole2Magic = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}
	zipMagic  = []byte{0x50, 0x4b, 0x03, 0x04}
	// an archive without entries starts directly with the end of central directory record
	emptyZipMagic = []byte{0x50, 0x4b, 0x05, 0x06}
)

// DetectFormat reads the leading bytes of r.
func DetectFormat(r io.ReaderAt) (Format, error) {
	buf := make([]byte, len(ole2Magic))
	n, err := r.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return FormatUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	buf = buf[:n]

	switch {
	case bytes.HasPrefix(buf, ole2Magic):
		return FormatOLE2, nil
	case bytes.HasPrefix(buf, zipMagic), bytes.HasPrefix(buf, emptyZipMagic):
		return FormatOOXML, nil
	default:
		return FormatUnknown, nil
	}
}

// Sniff returns an UnsupportedFormatError unless r looks like a zip package.
func Sniff(r io.ReaderAt) error {
	format, err := DetectFormat(r)
	if err != nil {
		return err
	}
	if format != FormatOOXML {
		return &UnsupportedFormatError{Format: format}
	}
	return nil
}
