package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/econdata/tsengine/pkg/types"
	"github.com/econdata/tsengine/pkg/xerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) (*Catalog, string) {
	t.Helper()
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)
	return c, dir
}

func sampleSeries(id, external string) types.Series {
	return types.Series{
		SeriesID:   id,
		SourceID:   "fred",
		ExternalID: external,
		Title:      "Test Series",
		Frequency:  types.FrequencyDaily,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
}

func TestUpsertAndGetSeries(t *testing.T) {
	c, _ := newTestCatalog(t)
	s := sampleSeries("s1", "GDP")
	require.NoError(t, c.UpsertSeries(s))

	rec, err := c.GetSeries("s1")
	require.NoError(t, err)
	assert.Equal(t, "GDP", rec.Meta.ExternalID)
}

func TestGetSeriesNotFound(t *testing.T) {
	c, _ := newTestCatalog(t)
	_, err := c.GetSeries("missing")
	assert.Equal(t, xerrors.NotFound, xerrors.KindOf(err))
}

func TestFindByExternal(t *testing.T) {
	c, _ := newTestCatalog(t)
	require.NoError(t, c.UpsertSeries(sampleSeries("s1", "GDP")))

	rec, err := c.FindByExternal("fred", "GDP")
	require.NoError(t, err)
	assert.Equal(t, "s1", rec.Meta.SeriesID)

	_, err = c.FindByExternal("fred", "UNKNOWN")
	assert.Equal(t, xerrors.NotFound, xerrors.KindOf(err))
}

func TestUpsertRejectsInvalidDateRange(t *testing.T) {
	c, _ := newTestCatalog(t)
	s := sampleSeries("s1", "GDP")
	start := types.NewDate(2020, 1, 1)
	end := types.NewDate(2019, 1, 1)
	s.StartDate = &start
	s.EndDate = &end
	err := c.UpsertSeries(s)
	assert.Equal(t, xerrors.Invalid, xerrors.KindOf(err))
}

func TestUpdateCoverageWidensRangeAndDedupsFiles(t *testing.T) {
	c, _ := newTestCatalog(t)
	require.NoError(t, c.UpsertSeries(sampleSeries("s1", "GDP")))

	d1 := types.NewDate(2020, 1, 1)
	d2 := types.NewDate(2020, 1, 31)
	require.NoError(t, c.UpdateCoverage("s1", d1, d2, 31, "year=2020/month=01/series_s1.tsc"))
	require.NoError(t, c.UpdateCoverage("s1", d1, d2, 31, "year=2020/month=01/series_s1.tsc"))

	d3 := types.NewDate(2020, 3, 1)
	require.NoError(t, c.UpdateCoverage("s1", d2, d3, 10, "year=2020/month=03/series_s1.tsc"))

	rec, err := c.GetSeries("s1")
	require.NoError(t, err)
	assert.True(t, rec.Coverage.StartDate.Equal(d1))
	assert.True(t, rec.Coverage.EndDate.Equal(d3))
	assert.Equal(t, int64(72), rec.Coverage.TotalPoints)
	assert.Len(t, rec.Coverage.FilePaths, 2)
}

func TestFindByDateRangeOverlap(t *testing.T) {
	c, _ := newTestCatalog(t)
	require.NoError(t, c.UpsertSeries(sampleSeries("early", "E")))
	require.NoError(t, c.UpsertSeries(sampleSeries("mid", "M")))
	require.NoError(t, c.UpsertSeries(sampleSeries("late", "L")))

	require.NoError(t, c.UpdateCoverage("early", types.NewDate(2019, 1, 1), types.NewDate(2019, 12, 31), 1, "e"))
	require.NoError(t, c.UpdateCoverage("mid", types.NewDate(2020, 1, 1), types.NewDate(2020, 6, 30), 1, "m"))
	require.NoError(t, c.UpdateCoverage("late", types.NewDate(2021, 1, 1), types.NewDate(2021, 12, 31), 1, "l"))

	out := c.FindByDateRange(types.NewDate(2020, 1, 1), types.NewDate(2020, 12, 31))
	require.Len(t, out, 1)
	assert.Equal(t, "mid", out[0].SeriesID)
}

func TestStats(t *testing.T) {
	c, _ := newTestCatalog(t)
	require.NoError(t, c.UpsertSeries(sampleSeries("s1", "GDP")))
	require.NoError(t, c.UpdateCoverage("s1", types.NewDate(2020, 1, 1), types.NewDate(2020, 1, 2), 2, "f1"))

	st := c.Stats()
	assert.Equal(t, int64(1), st.TotalSeries)
	assert.Equal(t, int64(2), st.TotalPoints)
	require.NotNil(t, st.Earliest)
	assert.Equal(t, "2020-01-01", st.Earliest.String())
}

func TestValidateDetectsMissingAndOrphaned(t *testing.T) {
	c, dir := newTestCatalog(t)
	require.NoError(t, c.UpsertSeries(sampleSeries("s1", "GDP")))
	require.NoError(t, c.UpdateCoverage("s1", types.NewDate(2020, 1, 1), types.NewDate(2020, 1, 1), 1, "missing.tsc"))

	orphanPath := filepath.Join(dir, "orphan.tsc")
	require.NoError(t, os.WriteFile(orphanPath, []byte("x"), 0o644))

	report := c.Validate(dir)
	assert.Contains(t, report.MissingFiles, "missing.tsc")
	assert.Contains(t, report.OrphanedFiles, "orphan.tsc")
}

func TestPersistenceSurvivesReopen(t *testing.T) {
	c, dir := newTestCatalog(t)
	require.NoError(t, c.UpsertSeries(sampleSeries("s1", "GDP")))
	require.NoError(t, c.UpdateCoverage("s1", types.NewDate(2020, 1, 1), types.NewDate(2020, 1, 1), 1, "f1"))

	reopened, err := Open(dir)
	require.NoError(t, err)
	rec, err := reopened.GetSeries("s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Coverage.TotalPoints)

	found, err := reopened.FindByExternal("fred", "GDP")
	require.NoError(t, err)
	assert.Equal(t, "s1", found.Meta.SeriesID)
}
