// Package xmlstrip removes elements from XML documents without re-serializing
// the rest of the document.
//
// The document is walked as an encoding/xml token stream. Every token that is
// kept is copied from the input as the exact byte range the decoder consumed
// for it, so attribute order, quoting, whitespace, entity references and
// self-closing style survive untouched. Elements are matched by local name
// only: a prefixed element such as <x14:sheetProtection> is removed as well.
package xmlstrip

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"unicode/utf8"
)

// Strip returns doc with every element whose local name is tag removed
// together with its subtree, and the number of elements removed. Nested
// elements of the same name inside a removed element are not counted.
func Strip(doc []byte, tag string) ([]byte, int, error) {
	var out bytes.Buffer
	out.Grow(len(doc))

	removed := 0
	err := walk(doc, tag, func(raw []byte) {
		out.Write(raw)
	}, func() {
		removed++
	})
	if err != nil {
		return nil, 0, err
	}

	if !utf8.Valid(out.Bytes()) {
		return nil, 0, &EncodingInvariantError{Tag: tag}
	}

	return out.Bytes(), removed, nil
}

// Contains reports whether doc has at least one element whose local name is tag.
func Contains(doc []byte, tag string) (bool, error) {
	found := false
	err := walk(doc, tag, func([]byte) {}, func() {
		found = true
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// walk streams doc and calls keep with the raw bytes of every token outside a
// matched subtree, and matched once for each outermost matched element. The
// document must have exactly one root element and nothing but whitespace,
// comments, processing instructions and directives outside it.
func walk(doc []byte, tag string, keep func(raw []byte), matched func()) error {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Strict = true

	// depth > 0 while inside a matched subtree
	depth := 0
	// level is the element nesting of the document itself
	level := 0
	rootSeen := false
	for {
		start := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			if !rootSeen {
				return &ParseError{Offset: start, Err: ErrNoRootElement}
			}
			return nil
		}
		if err != nil {
			return &ParseError{Offset: dec.InputOffset(), Err: err}
		}
		end := dec.InputOffset()

		switch t := tok.(type) {
		case xml.StartElement:
			if level == 0 {
				if rootSeen {
					return &ParseError{Offset: start, Err: ErrMultipleRootElements}
				}
				rootSeen = true
			}
			level++
			if depth > 0 {
				depth++
				continue
			}
			if t.Name.Local == tag {
				depth = 1
				matched()
				continue
			}
		case xml.EndElement:
			level--
			if depth > 0 {
				depth--
				continue
			}
		case xml.CharData:
			if level == 0 && len(bytes.Trim(t, xmlBlank)) > 0 {
				return &ParseError{Offset: start, Err: ErrTextOutsideRoot}
			}
			if depth > 0 {
				continue
			}
		default:
			if depth > 0 {
				continue
			}
		}

		// A self-closing element yields a StartElement spanning "<a/>" and a
		// zero-width EndElement, so copying each token's range reproduces it.
		keep(doc[start:end])
	}
}

// xmlBlank is XML whitespace plus a byte order mark some writers emit.
const xmlBlank = " \t\r\n\ufeff"
