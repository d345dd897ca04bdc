package archivers

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bundleTime = time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

type tarEntry struct {
	content string
	modTime time.Time
}

// readTarEntries decompresses the reader (gzip, zstd, or none) and returns entries by name.
func readTarEntries(r io.Reader, compression string) (map[string]tarEntry, error) {
	var decompressed io.Reader
	switch compression {
	case "gzip":
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		decompressed = gr
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		decompressed = zr
	case "none":
		decompressed = r
	default:
		return nil, fmt.Errorf("unknown compression: %s", compression)
	}
	tr := tar.NewReader(decompressed)
	found := make(map[string]tarEntry)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		found[h.Name] = tarEntry{content: string(content), modTime: h.ModTime}
	}
	return found, nil
}

func TestNewTarArchiver(t *testing.T) {
	tests := []struct {
		name        string
		compression string
		wantExt     string
		wantErr     bool
	}{
		{
			name:        "gzip compression",
			compression: "gzip",
			wantExt:     ".tar.gz",
		},
		{
			name:        "zstd compression",
			compression: "zstd",
			wantExt:     ".tar.zst",
		},
		{
			name:        "no compression",
			compression: "none",
			wantExt:     ".tar",
		},
		{
			name:        "empty defaults to zstd",
			compression: "",
			wantExt:     ".tar.zst",
		},
		{
			name:        "unsupported compression",
			compression: "bzip2",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archiver, err := NewTarArchiver(tt.compression, bundleTime)
			if tt.wantErr {
				require.Error(t, err, "NewTarArchiver() expected error")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, archiver.Extension())
		})
	}
}

func TestTarArchiver_RoundTrip(t *testing.T) {
	workbooks := map[string]string{
		"budget.xlsx":        "PK\x03\x04budget",
		"macros.xlsm":        "PK\x03\x04macros",
		"nested/report.xlsx": "PK\x03\x04report",
	}

	for _, compression := range []string{"gzip", "zstd", "none"} {
		t.Run(compression, func(t *testing.T) {
			archiver, err := NewTarArchiver(compression, bundleTime)
			require.NoError(t, err)

			for name, content := range workbooks {
				require.NoError(t, archiver.AddFile(t.Context(), name, bytes.NewReader([]byte(content))))
			}

			reader, err := archiver.Close()
			require.NoError(t, err)

			found, err := readTarEntries(reader, compression)
			require.NoError(t, err)
			assert.Len(t, found, len(workbooks))
			for name, content := range workbooks {
				assert.Equal(t, content, found[name].content, "file %s", name)
				assert.True(t, bundleTime.Equal(found[name].modTime), "mod time of %s", name)
			}
		})
	}
}

func TestTarArchiver_DuplicateName(t *testing.T) {
	archiver, err := NewTarArchiver("none", bundleTime)
	require.NoError(t, err)

	require.NoError(t, archiver.AddFile(t.Context(), "book.xlsx", bytes.NewReader([]byte("one"))))
	err = archiver.AddFile(t.Context(), "book.xlsx", bytes.NewReader([]byte("two")))
	require.Error(t, err)
	assert.ErrorContains(t, err, "already contains book.xlsx")
}

func TestTarArchiver_CloseTwice(t *testing.T) {
	archiver, err := NewTarArchiver("gzip", bundleTime)
	require.NoError(t, err)

	_, err = archiver.Close()
	require.NoError(t, err)

	_, err = archiver.Close()
	require.Error(t, err, "Close() second call should error")
}

func TestTarArchiver_AddFileAfterClose(t *testing.T) {
	archiver, err := NewTarArchiver("zstd", bundleTime)
	require.NoError(t, err)

	_, err = archiver.Close()
	require.NoError(t, err)

	err = archiver.AddFile(t.Context(), "book.xlsx", bytes.NewReader([]byte("content")))
	require.Error(t, err, "AddFile() after Close() should error")
}
