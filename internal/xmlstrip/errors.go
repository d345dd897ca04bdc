package xmlstrip

import (
	"errors"
	"fmt"
)

var (
	ErrNoRootElement        = errors.New("document has no root element")
	ErrMultipleRootElements = errors.New("document has more than one root element")
	ErrTextOutsideRoot      = errors.New("text outside the root element")
)

// ParseError is returned when the input is not well-formed XML.
type ParseError struct {
	Offset int64 // input byte offset where decoding stopped
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed xml at byte offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// EncodingInvariantError is returned when the filtered output is not valid
// UTF-8. Byte-range copying of a valid UTF-8 input cannot produce it, so
// seeing one means the output buffer was mismanaged.
type EncodingInvariantError struct {
	Tag string
}

func (e *EncodingInvariantError) Error() string {
	return fmt.Sprintf("output of stripping %q is not valid utf-8", e.Tag)
}
