package sources

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockDownloader serves a single object, writing it in two parts like the
// concurrent download manager does.
type mockDownloader struct {
	data  []byte
	err   error
	input *s3.GetObjectInput
}

func (m *mockDownloader) Download(_ context.Context, w io.WriterAt, input *s3.GetObjectInput, _ ...func(*manager.Downloader)) (int64, error) {
	m.input = input
	if m.err != nil {
		return 0, m.err
	}

	half := len(m.data) / 2
	if _, err := w.WriteAt(m.data[half:], int64(half)); err != nil {
		return 0, err
	}
	if _, err := w.WriteAt(m.data[:half], 0); err != nil {
		return 0, err
	}
	return int64(len(m.data)), nil
}

func TestS3Source_Stage(t *testing.T) {
	stager, stagingFs := newTestStager(t)

	t.Run("downloads object", func(t *testing.T) {
		downloader := &mockDownloader{data: []byte("PK\x03\x04quarterly-plan")}
		source, err := NewS3Source(zap.NewNop(), downloader, stager, "sheets", "q1/plan.xlsx")
		require.NoError(t, err)

		assert.Equal(t, "plan.xlsx", source.Filename())
		assert.Equal(t, "s3(sheets/q1/plan.xlsx)", source.Name())

		staged, err := source.Stage(t.Context())
		require.NoError(t, err)
		defer staged.Close()

		assert.Equal(t, "sheets", *downloader.input.Bucket)
		assert.Equal(t, "q1/plan.xlsx", *downloader.input.Key)

		got, err := io.ReadAll(io.NewSectionReader(staged, 0, staged.Size()))
		require.NoError(t, err)
		assert.Equal(t, "PK\x03\x04quarterly-plan", string(got))
	})

	t.Run("download error", func(t *testing.T) {
		downloader := &mockDownloader{err: errors.New("NoSuchKey")}
		source, err := NewS3Source(zap.NewNop(), downloader, stager, "sheets", "missing.xlsx")
		require.NoError(t, err)

		_, err = source.Stage(t.Context())
		require.Error(t, err)
		assert.ErrorContains(t, err, "s3://sheets/missing.xlsx")
		assert.ErrorContains(t, err, "NoSuchKey")
		assert.Empty(t, stagingEntries(t, stagingFs))
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := NewS3Source(zap.NewNop(), &mockDownloader{}, stager, "sheets", "")
		require.Error(t, err)
	})
}
