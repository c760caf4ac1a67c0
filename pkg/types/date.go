package types

import (
	"encoding/json"
	"errors"
	"time"
)

var errInvalidDateRange = errors.New("start_date must not be after end_date")

const dateLayout = "2006-01-02"

// Date is a day-precision calendar date (spec §3: "day-precision").
// It stores no time-of-day or location component so arithmetic and
// comparisons are unambiguous across the engine.
type Date struct {
	t time.Time
}

// NewDate constructs a Date from a y/m/d triple, normalized to UTC
// midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateFromTime truncates t to its UTC calendar date.
func DateFromTime(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses an ISO-8601 "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t: t}, nil
}

// Today returns the current UTC calendar date.
func Today() Date { return DateFromTime(time.Now()) }

// String renders the date as ISO-8601 "YYYY-MM-DD".
func (d Date) String() string { return d.t.Format(dateLayout) }

// IsZero reports whether d is the zero value.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.t.After(o.t) }

// Equal reports calendar-date equality.
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// DaysSinceEpoch returns the number of days since 1970-01-01, matching
// the `date Int32` column encoding in spec §6.1.
func (d Date) DaysSinceEpoch() int32 {
	epoch := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	return int32(d.t.Sub(epoch).Hours() / 24)
}

// DateFromEpochDays reverses DaysSinceEpoch.
func DateFromEpochDays(days int32) Date {
	epoch := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	return Date{t: epoch.AddDate(0, 0, int(days))}
}

// Time returns the UTC midnight time.Time backing d.
func (d Date) Time() time.Time { return d.t }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
