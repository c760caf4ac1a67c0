// Package partition maps dates to time-partitioned storage paths and
// enumerates partitions overlapping a date range (spec §4.2, §6.2).
package partition

import (
	"fmt"

	"github.com/econdata/tsengine/pkg/types"
)

// domainMinDate is the default lower bound when a range query leaves
// start unset (spec §4.2 "start unset defaults to domain minimum").
var domainMinDate = types.NewDate(1900, 1, 1)

// Path returns the partition directory for d: "year=YYYY/month=MM/day=DD".
func Path(d types.Date) string {
	t := d.Time()
	return fmt.Sprintf("year=%04d/month=%02d/day=%02d", t.Year(), int(t.Month()), t.Day())
}

// SeriesFileName returns the partition-relative file name for a series'
// data file, matching spec §6.2's `series_<series_id>.<ext>` pattern.
func SeriesFileName(seriesID, ext string) string {
	return fmt.Sprintf("series_%s.%s", seriesID, ext)
}

// SeriesFilePath joins Path and SeriesFileName for a single date.
func SeriesFilePath(d types.Date, seriesID, ext string) string {
	return Path(d) + "/" + SeriesFileName(seriesID, ext)
}

// Range enumerates every partition path for every date in [start, end]
// inclusive, in ascending date order (spec §4.2). start defaults to
// 1900-01-01 and end defaults to today when nil. start > end yields an
// empty sequence.
func Range(start, end *types.Date) []types.Date {
	s := domainMinDate
	if start != nil {
		s = *start
	}
	e := types.Today()
	if end != nil {
		e = *end
	}
	if e.Before(s) {
		return nil
	}

	var out []types.Date
	for d := s; !d.After(e); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// Paths is a convenience wrapper over Range returning partition
// directory strings instead of dates.
func Paths(start, end *types.Date) []string {
	dates := Range(start, end)
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = Path(d)
	}
	return out
}

// Clamp narrows [start, end] to the intersection with [lo, hi], both of
// which may be open-ended (nil). Used by the engine to intersect a
// caller's requested range with a series' catalog coverage before
// enumerating partitions (spec §4.4 step 2, P9).
func Clamp(start, end, lo, hi *types.Date) (*types.Date, *types.Date) {
	s := start
	if lo != nil && (s == nil || lo.After(*s)) {
		s = lo
	}
	e := end
	if hi != nil && (e == nil || hi.Before(*e)) {
		e = hi
	}
	return s, e
}
