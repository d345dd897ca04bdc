// Package transcode rewrites OOXML packages entry by entry, stripping
// protection elements from the parts selected by a rule table and storing
// every entry uncompressed.
package transcode

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/infracollect/xlunlock/internal/xmlstrip"
)

// EncodingPolicy decides what happens to a selected entry that is not valid UTF-8.
type EncodingPolicy string

const (
	// EncodingPolicySkip leaves the entry out of the output, like an unreadable entry.
	EncodingPolicySkip EncodingPolicy = "skip"
	// EncodingPolicyFail aborts the run.
	EncodingPolicyFail EncodingPolicy = "fail"
)

// ParseEncodingPolicy parses a policy name. An empty name selects EncodingPolicySkip.
func ParseEncodingPolicy(s string) (EncodingPolicy, error) {
	switch EncodingPolicy(s) {
	case "", EncodingPolicySkip:
		return EncodingPolicySkip, nil
	case EncodingPolicyFail:
		return EncodingPolicyFail, nil
	default:
		return "", fmt.Errorf("unsupported encoding policy %q (available: %s, %s)", s, EncodingPolicySkip, EncodingPolicyFail)
	}
}

type Transcoder struct {
	logger *zap.Logger
	rules  Rules
	policy EncodingPolicy
}

type Option func(*Transcoder)

func WithRules(rules Rules) Option {
	return func(t *Transcoder) {
		t.rules = rules
	}
}

func WithEncodingPolicy(policy EncodingPolicy) Option {
	return func(t *Transcoder) {
		t.policy = policy
	}
}

// New creates a transcoder using DefaultRules and EncodingPolicySkip unless
// overridden by opts.
func New(logger *zap.Logger, opts ...Option) *Transcoder {
	t := &Transcoder{
		logger: logger,
		rules:  DefaultRules(),
		policy: EncodingPolicySkip,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Rules returns the rule table used by the transcoder.
func (t *Transcoder) Rules() Rules {
	return t.rules
}

// Transcode reads the zip archive in src and writes the rewritten archive to dst.
//
// Entries keep their order, names, comments, modification times and
// attributes. Entries matched by a rule have the rule's tag stripped; all
// other entries are copied byte for byte. Entries that cannot be read are
// logged, recorded in the summary and left out. On any returned error other
// than an ArchiveOpenError, dst holds an incomplete archive.
func (t *Transcoder) Transcode(ctx context.Context, src io.ReaderAt, size int64, dst io.Writer) (Summary, error) {
	summary := newSummary()

	zr, err := zip.NewReader(src, size)
	if err != nil {
		return summary, &ArchiveOpenError{Err: err}
	}

	zw := zip.NewWriter(dst)
	if zr.Comment != "" {
		if err := zw.SetComment(zr.Comment); err != nil {
			return summary, &OutputWriteError{Err: err}
		}
	}

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("context cancelled while transcoding entry '%s': %w", f.Name, err)
		}

		summary.Entries++
		logger := t.logger.With(zap.String("entry", f.Name))

		content, err := readEntry(f)
		if err != nil {
			logger.Warn("skipping unreadable entry", zap.Error(err))
			summary.skip(f.Name, err)
			continue
		}

		rule, matched := t.rules.Find(f.Name)
		if matched {
			transformed, removed, err := t.transform(f.Name, content, rule)
			if err != nil {
				var encErr *InvalidEncodingError
				if errors.As(err, &encErr) && t.policy == EncodingPolicySkip {
					logger.Warn("skipping entry with invalid encoding", zap.String("rule", rule.Name))
					summary.skip(f.Name, err)
					continue
				}
				return summary, err
			}

			logger.Debug("stripped protection",
				zap.String("rule", rule.Name),
				zap.String("tag", rule.Tag),
				zap.Int("removed", removed),
			)
			content = transformed
			summary.Transformed++
			summary.Removed[rule.Tag] += removed
		} else {
			summary.Passthrough++
		}

		if err := writeEntry(zw, f, content); err != nil {
			return summary, &OutputWriteError{Entry: f.Name, Err: err}
		}
	}

	if err := zw.Close(); err != nil {
		return summary, &OutputWriteError{Err: err}
	}

	return summary, nil
}

func (t *Transcoder) transform(name string, content []byte, rule Rule) ([]byte, int, error) {
	if !utf8.Valid(content) {
		return nil, 0, &InvalidEncodingError{Entry: name}
	}

	out, removed, err := xmlstrip.Strip(content, rule.Tag)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to strip %s from entry %s: %w", rule.Tag, name, err)
	}

	return out, removed, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, &EntryReadError{Entry: f.Name, Err: err}
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, &EntryReadError{Entry: f.Name, Err: err}
	}

	return content, nil
}

// writeEntry stores content under f's name and metadata. File entries are
// written raw with the CRC and sizes in the local header, so no data
// descriptor follows the data. Streaming readers cannot find the end of a
// stored entry that relies on a descriptor.
func writeEntry(zw *zip.Writer, f *zip.File, content []byte) error {
	header := &zip.FileHeader{
		Name:          f.Name,
		Comment:       f.Comment,
		NonUTF8:       f.NonUTF8,
		Modified:      f.Modified,
		ExternalAttrs: f.ExternalAttrs,
		Method:        zip.Store,
	}

	// Directories and entries past the 32-bit size fields keep the writer's
	// own framing. Directories accept no data.
	if strings.HasSuffix(f.Name, "/") || uint64(len(content)) >= math.MaxUint32 {
		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		if len(content) == 0 {
			return nil
		}
		_, err = w.Write(content)
		return err
	}

	header.Flags = f.Flags & utf8Flag
	header.CreatorVersion = f.CreatorVersion&0xff00 | zipVersion20
	header.ReaderVersion = zipVersion20
	header.ModifiedDate = f.ModifiedDate
	header.ModifiedTime = f.ModifiedTime
	if !f.Modified.IsZero() {
		header.Extra = modTimeExtra(f.Modified)
	}
	header.CRC32 = crc32.ChecksumIEEE(content)
	header.CompressedSize64 = uint64(len(content))
	header.UncompressedSize64 = uint64(len(content))

	w, err := zw.CreateRaw(header)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

const (
	utf8Flag        = 0x800
	zipVersion20    = 20
	extTimeExtraID  = 0x5455
	extTimeModFlag  = 1
	extTimeDataSize = 5
)

// modTimeExtra encodes the Info-ZIP extended timestamp field that
// zip.Writer.CreateHeader adds for a modification time.
func modTimeExtra(modified time.Time) []byte {
	extra := make([]byte, 4+extTimeDataSize)
	binary.LittleEndian.PutUint16(extra[0:], extTimeExtraID)
	binary.LittleEndian.PutUint16(extra[2:], extTimeDataSize)
	extra[4] = extTimeModFlag
	binary.LittleEndian.PutUint32(extra[5:], uint32(modified.Unix()))
	return extra
}
