package codec

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/econdata/tsengine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDataPointsBatch(t *testing.T, rows int) *Batch {
	t.Helper()
	b := NewBatch(DataPointsSchema, rows)
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < rows; i++ {
		require.NoError(t, b.SetUtf8("id", i, "pt", false))
		require.NoError(t, b.SetUtf8("series_id", i, "s1", false))
		require.NoError(t, b.SetInt32("date", i, types.DateFromTime(base.AddDate(0, 0, i)).DaysSinceEpoch(), false))
		if i == 1 {
			require.NoError(t, b.SetFloat64("value", i, 0, true))
		} else {
			require.NoError(t, b.SetFloat64("value", i, float64(i)*1.5, false))
		}
		require.NoError(t, b.SetInt32("revision_date", i, types.DateFromTime(base).DaysSinceEpoch(), false))
		require.NoError(t, b.SetBool("is_original_release", i, true, false))
		require.NoError(t, b.SetTimestamp("created_at", i, base, false))
		require.NoError(t, b.SetTimestamp("updated_at", i, base, false))
	}
	return b
}

func TestWriteReadRoundTripZstd(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, DataPointsSchema, types.CompressionZstd)
	batch := buildDataPointsBatch(t, 5)
	require.NoError(t, w.WriteBatch(batch))
	require.NoError(t, w.Close())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, types.CompressionZstd, r.Compression)

	got, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 5, got.Rows)
	assert.Equal(t, "pt", got.Utf8At("id", 0))
	assert.True(t, got.IsNull("value", 1))
	assert.False(t, got.IsNull("value", 0))
	assert.Equal(t, 3.0, got.Float64At("value", 2))

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestWriteReadRoundTripEachCompression(t *testing.T) {
	for _, code := range []types.CompressionCode{types.CompressionNone, types.CompressionZstd, types.CompressionLz4, types.CompressionGzip} {
		code := code
		t.Run(string(code), func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf, DataPointsSchema, code)
			require.NoError(t, w.WriteBatch(buildDataPointsBatch(t, 3)))
			require.NoError(t, w.Close())

			r, err := NewReader(&buf)
			require.NoError(t, err)
			batches, err := r.ReadAll()
			require.NoError(t, err)
			require.Len(t, batches, 1)
			assert.Equal(t, 3, batches[0].Rows)
		})
	}
}

func TestMultipleRowGroupsStream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, DataPointsSchema, types.CompressionZstd)
	require.NoError(t, w.WriteBatch(buildDataPointsBatch(t, 2)))
	require.NoError(t, w.WriteBatch(buildDataPointsBatch(t, 4)))
	require.NoError(t, w.Close())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	batches, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, 2, batches[0].Rows)
	assert.Equal(t, 4, batches[1].Rows)
}

func TestForwardCompatibleTrailingColumn(t *testing.T) {
	extended := Schema{Columns: append(append([]ColumnSchema{}, DataPointsSchema.Columns...), ColumnSchema{Name: "future_field", Type: TypeUtf8, Nullable: true})}

	var buf bytes.Buffer
	w := NewWriter(&buf, extended, types.CompressionNone)
	b := NewBatch(extended, 1)
	base := time.Now()
	require.NoError(t, b.SetUtf8("id", 0, "pt", false))
	require.NoError(t, b.SetUtf8("series_id", 0, "s1", false))
	require.NoError(t, b.SetInt32("date", 0, types.DateFromTime(base).DaysSinceEpoch(), false))
	require.NoError(t, b.SetFloat64("value", 0, 1.0, false))
	require.NoError(t, b.SetInt32("revision_date", 0, types.DateFromTime(base).DaysSinceEpoch(), false))
	require.NoError(t, b.SetBool("is_original_release", 0, true, false))
	require.NoError(t, b.SetTimestamp("created_at", 0, base, false))
	require.NoError(t, b.SetTimestamp("updated_at", 0, base, false))
	require.NoError(t, b.SetUtf8("future_field", 0, "ignored-by-old-readers", true))
	require.NoError(t, w.WriteBatch(b))
	require.NoError(t, w.Close())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	assert.NoError(t, checkCompatible(DataPointsSchema, r.Schema))
}

func TestBadMagicIsCorrupt(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("not-a-codec-file-at-all")))
	require.Error(t, err)
}

func TestUnsupportedVersionRejected(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, DataPointsSchema, types.CompressionNone)
	require.NoError(t, w.WriteBatch(buildDataPointsBatch(t, 1)))
	require.NoError(t, w.Close())

	raw := buf.Bytes()
	raw[4] = 0xFF
	_, err := NewReader(bytes.NewReader(raw))
	require.Error(t, err)
}

func TestTruncatedRowGroupIsCorrupt(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, DataPointsSchema, types.CompressionNone)
	require.NoError(t, w.WriteBatch(buildDataPointsBatch(t, 10)))
	require.NoError(t, w.Close())

	raw := buf.Bytes()[:buf.Len()-5]
	r, err := NewReader(bytes.NewReader(raw))
	require.NoError(t, err)
	_, err = r.Next()
	assert.Error(t, err)
}
