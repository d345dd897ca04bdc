package transcode

import (
	"io"

	"github.com/klauspost/compress/zip"

	"github.com/infracollect/xlunlock/internal/xmlstrip"
)

// EntryReport describes one archive entry as the transcoder would see it.
type EntryReport struct {
	Name   string
	Size   uint64
	Method uint16
	// Rule is the name of the matching rule, empty for passthrough entries.
	Rule string
	// Protected reports whether the entry contains the rule's tag.
	Protected bool
	// Err is set when the entry could not be read or parsed.
	Err error
}

// Inspect reports every entry of the archive in src without writing anything.
// Per-entry failures are recorded in the report; only an archive that cannot
// be opened is an error.
func (t *Transcoder) Inspect(src io.ReaderAt, size int64) ([]EntryReport, error) {
	zr, err := zip.NewReader(src, size)
	if err != nil {
		return nil, &ArchiveOpenError{Err: err}
	}

	reports := make([]EntryReport, 0, len(zr.File))
	for _, f := range zr.File {
		report := EntryReport{
			Name:   f.Name,
			Size:   f.UncompressedSize64,
			Method: f.Method,
		}

		rule, matched := t.rules.Find(f.Name)
		if matched {
			report.Rule = rule.Name
			content, err := readEntry(f)
			if err == nil {
				report.Protected, err = xmlstrip.Contains(content, rule.Tag)
			}
			report.Err = err
		}

		reports = append(reports, report)
	}

	return reports, nil
}
