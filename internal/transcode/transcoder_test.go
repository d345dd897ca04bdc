package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/infracollect/xlunlock/internal/xmlstrip"
)

type testEntry struct {
	name    string
	content string
	method  uint16
}

const (
	sheetXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData/><sheetProtection sheet="1" objects="1" scenarios="1"/><pageMargins left="0.7"/></worksheet>`
	workbookXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><workbookProtection workbookPassword="CC3D" lockStructure="1"/><sheets><sheet name="Sheet1" sheetId="1"/></sheets></workbook>`
	sharedStringsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="1" uniqueCount="1"><si><t>sheetProtection</t></si></sst>`
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`
)

// buildArchive writes entries into a zip archive, deflating unless a method is given.
func buildArchive(t *testing.T, comment string, entries ...testEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		method := e.method
		if method == 0 {
			method = zip.Deflate
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   method,
			Modified: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		if e.content != "" {
			_, err = w.Write([]byte(e.content))
			require.NoError(t, err)
		}
	}
	if comment != "" {
		require.NoError(t, zw.SetComment(comment))
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func readArchive(t *testing.T, data []byte) ([]testEntry, string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := make([]testEntry, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		entries = append(entries, testEntry{name: f.Name, content: string(content), method: f.Method})
	}
	return entries, zr.Comment
}

func transcodeBytes(t *testing.T, tc *Transcoder, data []byte) ([]byte, Summary, error) {
	t.Helper()
	var out bytes.Buffer
	summary, err := tc.Transcode(t.Context(), bytes.NewReader(data), int64(len(data)), &out)
	return out.Bytes(), summary, err
}

func entryNames(entries []testEntry) []string {
	return lo.Map(entries, func(e testEntry, _ int) string { return e.name })
}

func TestTranscode_RuleTargeting(t *testing.T) {
	input := buildArchive(t, "",
		testEntry{name: "[Content_Types].xml", content: contentTypesXML},
		testEntry{name: "xl/", method: zip.Store},
		testEntry{name: "xl/workbook.xml", content: workbookXML},
		testEntry{name: "xl/worksheets/sheet1.xml", content: sheetXML},
		testEntry{name: "xl/sharedStrings.xml", content: sharedStringsXML},
	)

	out, summary, err := transcodeBytes(t, New(zap.NewNop()), input)
	require.NoError(t, err)

	entries, _ := readArchive(t, out)
	require.Len(t, entries, 5)
	assert.Equal(t, []string{
		"[Content_Types].xml",
		"xl/",
		"xl/workbook.xml",
		"xl/worksheets/sheet1.xml",
		"xl/sharedStrings.xml",
	}, entryNames(entries))

	byName := lo.KeyBy(entries, func(e testEntry) string { return e.name })

	hasSheetProtection, err := xmlstrip.Contains([]byte(byName["xl/worksheets/sheet1.xml"].content), SheetProtectionTag)
	require.NoError(t, err)
	assert.False(t, hasSheetProtection)
	assert.Contains(t, byName["xl/worksheets/sheet1.xml"].content, `<sheetData/><pageMargins left="0.7"/>`)

	hasWorkbookProtection, err := xmlstrip.Contains([]byte(byName["xl/workbook.xml"].content), WorkbookProtectionTag)
	require.NoError(t, err)
	assert.False(t, hasWorkbookProtection)
	assert.Contains(t, byName["xl/workbook.xml"].content, `<sheets><sheet name="Sheet1" sheetId="1"/></sheets>`)

	assert.Equal(t, sharedStringsXML, byName["xl/sharedStrings.xml"].content)
	assert.Equal(t, contentTypesXML, byName["[Content_Types].xml"].content)
	assert.Empty(t, byName["xl/"].content)

	assert.Equal(t, 5, summary.Entries)
	assert.Equal(t, 2, summary.Transformed)
	assert.Equal(t, 3, summary.Passthrough)
	assert.Empty(t, summary.Skipped)
	assert.Equal(t, map[string]int{SheetProtectionTag: 1, WorkbookProtectionTag: 1}, summary.Removed)
	assert.Equal(t, 2, summary.TotalRemoved())
	assert.Equal(t, 5, summary.Written())
}

func TestTranscode_StoresEveryEntry(t *testing.T) {
	input := buildArchive(t, "",
		testEntry{name: "docProps/app.xml", content: "<Properties/>"},
		testEntry{name: "xl/worksheets/sheet1.xml", content: sheetXML},
		testEntry{name: "xl/media/image1.png", content: "\x89PNG\r\n\x1a\nbinary", method: zip.Store},
	)

	out, _, err := transcodeBytes(t, New(zap.NewNop()), input)
	require.NoError(t, err)

	entries, _ := readArchive(t, out)
	for _, e := range entries {
		assert.Equal(t, zip.Store, e.method, "entry %s", e.name)
	}
	assert.Equal(t, "\x89PNG\r\n\x1a\nbinary", entries[2].content)
}

type localHeader struct {
	name             string
	flags            uint16
	method           uint16
	crc32            uint32
	compressedSize   uint32
	uncompressedSize uint32
	data             []byte
}

// readLocalHeaders walks the archive front to back the way a streaming reader
// does, trusting only the sizes found in each local file header.
func readLocalHeaders(t *testing.T, data []byte) []localHeader {
	t.Helper()
	var headers []localHeader
	for off := 0; off+30 <= len(data) && binary.LittleEndian.Uint32(data[off:]) == 0x04034b50; {
		h := localHeader{
			flags:            binary.LittleEndian.Uint16(data[off+6:]),
			method:           binary.LittleEndian.Uint16(data[off+8:]),
			crc32:            binary.LittleEndian.Uint32(data[off+14:]),
			compressedSize:   binary.LittleEndian.Uint32(data[off+18:]),
			uncompressedSize: binary.LittleEndian.Uint32(data[off+22:]),
		}
		nameLen := int(binary.LittleEndian.Uint16(data[off+26:]))
		extraLen := int(binary.LittleEndian.Uint16(data[off+28:]))
		start := off + 30 + nameLen + extraLen
		end := start + int(h.compressedSize)
		require.LessOrEqual(t, end, len(data), "entry at offset %d overruns the archive", off)

		h.name = string(data[off+30 : off+30+nameLen])
		h.data = data[start:end]
		headers = append(headers, h)
		off = end
	}
	return headers
}

func TestTranscode_LocalHeadersCarrySizes(t *testing.T) {
	input := buildArchive(t, "",
		testEntry{name: "[Content_Types].xml", content: contentTypesXML},
		testEntry{name: "xl/", method: zip.Store},
		testEntry{name: "xl/worksheets/sheet1.xml", content: sheetXML},
		testEntry{name: "xl/media/image1.png", content: "\x89PNG\r\n\x1a\nbinary", method: zip.Store},
	)

	out, _, err := transcodeBytes(t, New(zap.NewNop()), input)
	require.NoError(t, err)

	entries, _ := readArchive(t, out)
	headers := readLocalHeaders(t, out)
	require.Len(t, headers, len(entries))

	for i, h := range headers {
		t.Run(h.name, func(t *testing.T) {
			assert.Equal(t, entries[i].name, h.name)
			assert.Zero(t, h.flags&0x8, "data descriptor flag set")
			assert.Equal(t, zip.Store, h.method)
			assert.Equal(t, h.compressedSize, h.uncompressedSize)
			assert.Equal(t, entries[i].content, string(h.data))
			assert.Equal(t, crc32.ChecksumIEEE(h.data), h.crc32)
			if !strings.HasSuffix(h.name, "/") {
				assert.NotZero(t, h.compressedSize)
			}
		})
	}
}

func TestTranscode_PreservesMetadata(t *testing.T) {
	input := buildArchive(t, "archive comment",
		testEntry{name: "xl/worksheets/sheet1.xml", content: sheetXML},
	)

	out, _, err := transcodeBytes(t, New(zap.NewNop()), input)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)
	assert.Equal(t, "archive comment", zr.Comment)
	require.Len(t, zr.File, 1)
	assert.True(t, zr.File[0].Modified.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)),
		"modified time %v", zr.File[0].Modified)
}

func TestTranscode_SkipsUnreadableEntry(t *testing.T) {
	input := buildArchive(t, "",
		testEntry{name: "xl/styles.xml", content: "<styleSheet/>"},
		testEntry{name: "xl/corrupt.bin", content: "CORRUPTME-payload", method: zip.Store},
		testEntry{name: "xl/worksheets/sheet1.xml", content: sheetXML},
	)

	// flip a payload byte so the stored entry fails its checksum
	idx := bytes.Index(input, []byte("CORRUPTME-payload"))
	require.Positive(t, idx)
	input[idx] = 'X'

	out, summary, err := transcodeBytes(t, New(zap.NewNop()), input)
	require.NoError(t, err)

	entries, _ := readArchive(t, out)
	assert.Equal(t, []string{"xl/styles.xml", "xl/worksheets/sheet1.xml"}, entryNames(entries))

	require.Len(t, summary.Skipped, 1)
	assert.Equal(t, []string{"xl/corrupt.bin"}, summary.SkippedNames())
	var readErr *EntryReadError
	require.ErrorAs(t, summary.Skipped[0].Reason, &readErr)
	assert.Equal(t, "xl/corrupt.bin", readErr.Entry)
	assert.Equal(t, 3, summary.Entries)
}

func TestTranscode_InvalidEncoding(t *testing.T) {
	input := buildArchive(t, "",
		testEntry{name: "xl/workbook.xml", content: workbookXML},
		testEntry{name: "xl/worksheets/sheet1.xml", content: "<worksheet>\xff\xfe</worksheet>"},
		testEntry{name: "xl/styles.xml", content: "<styleSheet/>"},
	)

	t.Run("skip policy leaves the entry out", func(t *testing.T) {
		out, summary, err := transcodeBytes(t, New(zap.NewNop()), input)
		require.NoError(t, err)

		entries, _ := readArchive(t, out)
		assert.Equal(t, []string{"xl/workbook.xml", "xl/styles.xml"}, entryNames(entries))

		require.Len(t, summary.Skipped, 1)
		var encErr *InvalidEncodingError
		require.ErrorAs(t, summary.Skipped[0].Reason, &encErr)
		assert.Equal(t, "xl/worksheets/sheet1.xml", encErr.Entry)
	})

	t.Run("fail policy aborts the run", func(t *testing.T) {
		_, _, err := transcodeBytes(t, New(zap.NewNop(), WithEncodingPolicy(EncodingPolicyFail)), input)
		require.Error(t, err)

		var encErr *InvalidEncodingError
		require.ErrorAs(t, err, &encErr)
		assert.Equal(t, "xl/worksheets/sheet1.xml", encErr.Entry)
	})

	t.Run("unmatched entries are never decoded", func(t *testing.T) {
		binary := buildArchive(t, "",
			testEntry{name: "xl/vbaProject.bin", content: "\xff\xfe\x00binary"},
		)
		out, summary, err := transcodeBytes(t, New(zap.NewNop(), WithEncodingPolicy(EncodingPolicyFail)), binary)
		require.NoError(t, err)

		entries, _ := readArchive(t, out)
		require.Len(t, entries, 1)
		assert.Equal(t, "\xff\xfe\x00binary", entries[0].content)
		assert.Equal(t, 1, summary.Passthrough)
	})
}

func TestTranscode_MalformedXML(t *testing.T) {
	input := buildArchive(t, "",
		testEntry{name: "xl/worksheets/sheet1.xml", content: "<worksheet><sheetData></worksheet>"},
	)

	_, _, err := transcodeBytes(t, New(zap.NewNop()), input)
	require.Error(t, err)

	var parseErr *xmlstrip.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.ErrorContains(t, err, "xl/worksheets/sheet1.xml")
}

func TestTranscode_NotAnArchive(t *testing.T) {
	data := []byte("definitely not a zip archive")
	out, _, err := transcodeBytes(t, New(zap.NewNop()), data)
	require.Error(t, err)

	var openErr *ArchiveOpenError
	require.ErrorAs(t, err, &openErr)
	assert.Empty(t, out, "nothing should be written before the archive opens")
}

func TestTranscode_CustomRulesFirstMatchWins(t *testing.T) {
	rules := Rules{
		{Name: "specific", Match: Exact("xl/worksheets/sheet2.xml"), Tag: "b"},
		{Name: "broad", Match: HasPrefix("xl/worksheets/"), Tag: "a"},
	}
	input := buildArchive(t, "",
		testEntry{name: "xl/worksheets/sheet1.xml", content: "<r><a/><b/></r>"},
		testEntry{name: "xl/worksheets/sheet2.xml", content: "<r><a/><b/></r>"},
	)

	out, summary, err := transcodeBytes(t, New(zap.NewNop(), WithRules(rules)), input)
	require.NoError(t, err)

	entries, _ := readArchive(t, out)
	require.Len(t, entries, 2)
	assert.Equal(t, "<r><b/></r>", entries[0].content)
	assert.Equal(t, "<r><a/></r>", entries[1].content)
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, summary.Removed)
}

func TestTranscode_Idempotent(t *testing.T) {
	input := buildArchive(t, "",
		testEntry{name: "xl/workbook.xml", content: workbookXML},
		testEntry{name: "xl/worksheets/sheet1.xml", content: sheetXML},
	)
	tc := New(zap.NewNop())

	once, _, err := transcodeBytes(t, tc, input)
	require.NoError(t, err)
	twice, summary, err := transcodeBytes(t, tc, once)
	require.NoError(t, err)

	first, _ := readArchive(t, once)
	second, _ := readArchive(t, twice)
	assert.Equal(t, first, second)
	assert.Zero(t, summary.TotalRemoved())
}

func TestTranscode_CancelledContext(t *testing.T) {
	input := buildArchive(t, "", testEntry{name: "xl/styles.xml", content: "<styleSheet/>"})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	var out bytes.Buffer
	_, err := New(zap.NewNop()).Transcode(ctx, bytes.NewReader(input), int64(len(input)), &out)
	require.ErrorIs(t, err, context.Canceled)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, io.ErrShortWrite
}

func TestTranscode_OutputWriteError(t *testing.T) {
	input := buildArchive(t, "", testEntry{name: "xl/styles.xml", content: "<styleSheet/>"})

	_, err := New(zap.NewNop()).Transcode(t.Context(), bytes.NewReader(input), int64(len(input)), failingWriter{})
	require.Error(t, err)

	var writeErr *OutputWriteError
	require.ErrorAs(t, err, &writeErr)
	require.ErrorIs(t, err, io.ErrShortWrite)
}

func TestParseEncodingPolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    EncodingPolicy
		wantErr bool
	}{
		{input: "", want: EncodingPolicySkip},
		{input: "skip", want: EncodingPolicySkip},
		{input: "fail", want: EncodingPolicyFail},
		{input: "ignore", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEncodingPolicy(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
