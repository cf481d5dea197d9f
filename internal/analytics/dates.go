// Package analytics derives habit statistics from raw entry lists: streaks,
// completion rates, goal period windows, contribution calendars and the
// dashboard display order.
//
// Every function is pure. "Today" is always an explicit argument; nothing in
// this package reads the clock, so results are deterministic and safe to call
// concurrently.
package analytics

import (
	"math"
	"time"

	"cloud.google.com/go/civil"

	"github.com/hyperengineering/tally/internal/types"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// TodayIn returns the calendar date of now in loc.
// Call it once at the request boundary and pass the result down.
func TodayIn(now time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(now.In(loc))
}

// isoWeekday returns 1 for Monday through 7 for Sunday.
func isoWeekday(d civil.Date) int {
	wd := d.In(time.UTC).Weekday()
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

func startOfWeek(d civil.Date) civil.Date {
	return d.AddDays(-(isoWeekday(d) - 1))
}

func startOfMonth(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
}

func endOfMonth(d civil.Date) civil.Date {
	// Day 0 of the next month normalizes to the last day of this one.
	return civil.DateOf(time.Date(d.Year, d.Month+1, 0, 0, 0, 0, 0, time.UTC))
}

func startOfYear(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: time.January, Day: 1}
}

func endOfYear(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: time.December, Day: 31}
}

// within reports whether d lies in [start, end].
func within(d, start, end civil.Date) bool {
	return !d.Before(start) && !d.After(end)
}

func compareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func percent(n, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(n) / float64(total)))
}

type entryKey struct {
	trackableID string
	date        civil.Date
}

// dedupe keeps at most one entry per date, or per (trackable, date) when
// perTrackable is set. The most recently updated entry wins; ties go to the
// entry appearing later in the input.
func dedupe(entries []types.Entry, perTrackable bool) []types.Entry {
	index := make(map[entryKey]int, len(entries))
	out := make([]types.Entry, 0, len(entries))
	for _, e := range entries {
		k := entryKey{date: e.Date}
		if perTrackable {
			k.trackableID = e.TrackableID
		}
		if i, ok := index[k]; ok {
			if supersedes(e, out[i]) {
				out[i] = e
			}
			continue
		}
		index[k] = len(out)
		out = append(out, e)
	}
	return out
}

func supersedes(e, prev types.Entry) bool {
	if !e.UpdatedAt.Equal(prev.UpdatedAt) {
		return e.UpdatedAt.After(prev.UpdatedAt)
	}
	return !e.CreatedAt.Before(prev.CreatedAt)
}
