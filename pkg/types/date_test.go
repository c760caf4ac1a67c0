package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRoundTripEpochDays(t *testing.T) {
	d := NewDate(2020, 1, 1)
	assert.Equal(t, int32(18262), d.DaysSinceEpoch())
	assert.True(t, DateFromEpochDays(18262).Equal(d))
}

func TestDateParseAndString(t *testing.T) {
	d, err := ParseDate("2020-12-25")
	require.NoError(t, err)
	assert.Equal(t, "2020-12-25", d.String())
}

func TestDateOrdering(t *testing.T) {
	a := NewDate(2020, 3, 15)
	b := NewDate(2020, 3, 16)
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.Equal(b))
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2021, 2, 28)
	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2021-02-28"`, string(out))

	var back Date
	require.NoError(t, json.Unmarshal(out, &back))
	assert.True(t, back.Equal(d))
}

func TestSeriesValidate(t *testing.T) {
	start := NewDate(2020, 1, 1)
	end := NewDate(2019, 1, 1)
	s := &Series{StartDate: &start, EndDate: &end}
	assert.Error(t, s.Validate())

	end2 := NewDate(2021, 1, 1)
	s2 := &Series{StartDate: &start, EndDate: &end2}
	assert.NoError(t, s2.Validate())
}
