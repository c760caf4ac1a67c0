package engine

import (
	"testing"
	"time"

	"github.com/econdata/tsengine/pkg/catalog"
	"github.com/econdata/tsengine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, *catalog.Catalog) {
	t.Helper()
	dir := t.TempDir()
	cat, err := catalog.Open(dir)
	require.NoError(t, err)
	return New(dir, cat, types.CompressionZstd, 0), cat
}

func ptr(v float64) *float64 { return &v }

func TestWriteAndReadPointsRoundTrip(t *testing.T) {
	eng, cat := newTestEngine(t)
	require.NoError(t, cat.UpsertSeries(types.Series{
		SeriesID: "s1", SourceID: "fred", ExternalID: "GDP", Frequency: types.FrequencyDaily,
	}))

	d1 := types.NewDate(2020, 1, 1)
	d2 := types.NewDate(2020, 1, 2)
	points := []types.DataPoint{
		{SeriesID: "s1", Date: d1, Value: ptr(1.0), RevisionDate: d1, IsOriginalRelease: true, CreatedAt: time.Now(), UpdatedAt: time.Now()},
		{SeriesID: "s1", Date: d2, Value: ptr(2.0), RevisionDate: d2, IsOriginalRelease: true, CreatedAt: time.Now(), UpdatedAt: time.Now()},
	}
	require.NoError(t, eng.WritePoints("s1", points))

	out, partial, err := eng.ReadPoints("s1", nil, nil, types.ModeAll)
	require.NoError(t, err)
	assert.Empty(t, partial)
	require.Len(t, out, 2)
	assert.Equal(t, 1.0, *out[0].Value)
	assert.Equal(t, 2.0, *out[1].Value)
}

func TestWritePointsDedupesOnDateRevision(t *testing.T) {
	eng, cat := newTestEngine(t)
	require.NoError(t, cat.UpsertSeries(types.Series{SeriesID: "s1", SourceID: "fred", ExternalID: "GDP"}))

	d := types.NewDate(2020, 1, 1)
	require.NoError(t, eng.WritePoints("s1", []types.DataPoint{
		{SeriesID: "s1", Date: d, Value: ptr(1.0), RevisionDate: d, IsOriginalRelease: true},
	}))
	require.NoError(t, eng.WritePoints("s1", []types.DataPoint{
		{SeriesID: "s1", Date: d, Value: ptr(99.0), RevisionDate: d, IsOriginalRelease: true},
	}))

	out, _, err := eng.ReadPoints("s1", nil, nil, types.ModeAll)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 99.0, *out[0].Value)
}

func TestReadModeLatestOriginalAll(t *testing.T) {
	eng, cat := newTestEngine(t)
	require.NoError(t, cat.UpsertSeries(types.Series{SeriesID: "s1", SourceID: "fred", ExternalID: "GDP"}))

	d := types.NewDate(2020, 1, 1)
	rev1 := types.NewDate(2020, 1, 2)
	rev2 := types.NewDate(2020, 2, 1)
	require.NoError(t, eng.WritePoints("s1", []types.DataPoint{
		{SeriesID: "s1", Date: d, Value: ptr(1.0), RevisionDate: rev1, IsOriginalRelease: true},
		{SeriesID: "s1", Date: d, Value: ptr(2.0), RevisionDate: rev2, IsOriginalRelease: false},
	}))

	all, _, err := eng.ReadPoints("s1", nil, nil, types.ModeAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	latest, _, err := eng.ReadPoints("s1", nil, nil, types.ModeLatest)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, 2.0, *latest[0].Value)

	original, _, err := eng.ReadPoints("s1", nil, nil, types.ModeOriginal)
	require.NoError(t, err)
	require.Len(t, original, 1)
	assert.Equal(t, 1.0, *original[0].Value)
}

func TestReadPointsUnknownSeriesIsEmpty(t *testing.T) {
	eng, _ := newTestEngine(t)
	out, partial, err := eng.ReadPoints("nope", nil, nil, types.ModeAll)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, partial)
}

func TestReadPointsRangeFiltersAndPreservesGaps(t *testing.T) {
	eng, cat := newTestEngine(t)
	require.NoError(t, cat.UpsertSeries(types.Series{SeriesID: "s1", SourceID: "fred", ExternalID: "GDP"}))

	jan1 := types.NewDate(2020, 1, 1)
	jan3 := types.NewDate(2020, 1, 3)
	require.NoError(t, eng.WritePoints("s1", []types.DataPoint{
		{SeriesID: "s1", Date: jan1, Value: ptr(1.0), RevisionDate: jan1, IsOriginalRelease: true},
		{SeriesID: "s1", Date: jan3, Value: ptr(3.0), RevisionDate: jan3, IsOriginalRelease: true},
	}))

	start := types.NewDate(2020, 1, 1)
	end := types.NewDate(2020, 1, 3)
	out, _, err := eng.ReadPoints("s1", &start, &end, types.ModeAll)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "2020-01-01", out[0].Date.String())
	assert.Equal(t, "2020-01-03", out[1].Date.String())
}
