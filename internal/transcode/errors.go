package transcode

import "fmt"

// ArchiveOpenError is returned when the source cannot be read as a zip archive.
// Nothing has been written to the destination when it occurs.
type ArchiveOpenError struct {
	Err error
}

func (e *ArchiveOpenError) Error() string {
	return fmt.Sprintf("failed to open archive: %v", e.Err)
}

func (e *ArchiveOpenError) Unwrap() error {
	return e.Err
}

// EntryReadError describes an entry whose compressed data could not be
// decoded. The transcoder recovers from it by leaving the entry out.
type EntryReadError struct {
	Entry string
	Err   error
}

func (e *EntryReadError) Error() string {
	return fmt.Sprintf("failed to read entry %s: %v", e.Entry, e.Err)
}

func (e *EntryReadError) Unwrap() error {
	return e.Err
}

// InvalidEncodingError is returned for an entry selected for transformation
// whose content is not valid UTF-8.
type InvalidEncodingError struct {
	Entry string
}

func (e *InvalidEncodingError) Error() string {
	return fmt.Sprintf("entry %s is not valid utf-8", e.Entry)
}

// OutputWriteError is returned when the destination rejects written bytes.
// The destination archive is incomplete once it occurs.
type OutputWriteError struct {
	Entry string // empty when finalizing the archive failed
	Err   error
}

func (e *OutputWriteError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("failed to finalize output archive: %v", e.Err)
	}
	return fmt.Sprintf("failed to write entry %s: %v", e.Entry, e.Err)
}

func (e *OutputWriteError) Unwrap() error {
	return e.Err
}

// UnsupportedFormatError is returned by Sniff for content that is not a zip
// based OOXML package.
type UnsupportedFormatError struct {
	Format Format
}

func (e *UnsupportedFormatError) Error() string {
	switch e.Format {
	case FormatOLE2:
		return "workbook is an OLE2 compound document: encrypted or legacy .xls files are not supported"
	default:
		return "content is not an OOXML (zip) package"
	}
}
