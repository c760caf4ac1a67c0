package partition

import (
	"testing"

	"github.com/econdata/tsengine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathFormat(t *testing.T) {
	d := types.NewDate(2020, 3, 5)
	assert.Equal(t, "year=2020/month=03/day=05", Path(d))
}

func TestSeriesFilePath(t *testing.T) {
	d := types.NewDate(2020, 3, 5)
	assert.Equal(t, "year=2020/month=03/day=05/series_abc-123.tsc", SeriesFilePath(d, "abc-123", "tsc"))
}

func TestRangeInclusive(t *testing.T) {
	start := types.NewDate(2020, 1, 1)
	end := types.NewDate(2020, 1, 3)
	dates := Range(&start, &end)
	require.Len(t, dates, 3)
	assert.Equal(t, "2020-01-01", dates[0].String())
	assert.Equal(t, "2020-01-03", dates[2].String())
}

func TestRangeEmptyWhenStartAfterEnd(t *testing.T) {
	start := types.NewDate(2020, 1, 10)
	end := types.NewDate(2020, 1, 1)
	assert.Empty(t, Range(&start, &end))
}

func TestRangeDefaultsWhenUnset(t *testing.T) {
	end := types.NewDate(1900, 1, 3)
	dates := Range(nil, &end)
	require.Len(t, dates, 3)
	assert.Equal(t, "1900-01-01", dates[0].String())
}

func TestClamp(t *testing.T) {
	lo := types.NewDate(2020, 1, 1)
	hi := types.NewDate(2020, 12, 31)
	qs := types.NewDate(2019, 6, 1)
	qe := types.NewDate(2020, 6, 1)
	s, e := Clamp(&qs, &qe, &lo, &hi)
	assert.True(t, s.Equal(lo))
	assert.True(t, e.Equal(qe))
}
