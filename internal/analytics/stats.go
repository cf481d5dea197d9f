package analytics

import (
	"slices"

	"cloud.google.com/go/civil"

	"github.com/hyperengineering/tally/internal/types"
)

// RateWindowDays is the length of the completion-rate window, today included.
const RateWindowDays = 30

// Stats summarizes one trackable's entries.
type Stats struct {
	CurrentStreak     int `json:"current_streak"`
	LongestStreak     int `json:"longest_streak"`
	CompletionRate30d int `json:"completion_rate_30d"`
	TotalCompletions  int `json:"total_completions"`
}

// ComputeStats derives streaks and rates from the entries of a single
// trackable. Entries may be unordered and may contain duplicates for a date.
//
// The current streak counts consecutive completed days ending today; it is 0
// when today has no completed entry. The longest streak scans entries in date
// order and is only broken by an explicit completed=false entry, not by a
// day without any entry.
func ComputeStats(entries []types.Entry, today civil.Date) Stats {
	if len(entries) == 0 {
		return Stats{}
	}

	unique := dedupe(entries, false)
	windowStart := today.AddDays(-(RateWindowDays - 1))

	var stats Stats
	var recent int
	done := make(map[civil.Date]bool, len(unique))
	for _, e := range unique {
		if !e.Completed {
			continue
		}
		done[e.Date] = true
		stats.TotalCompletions++
		if within(e.Date, windowStart, today) {
			recent++
		}
	}

	for d := today; done[d]; d = d.AddDays(-1) {
		stats.CurrentStreak++
	}

	slices.SortStableFunc(unique, func(a, b types.Entry) int {
		return compareDates(a.Date, b.Date)
	})
	run := 0
	for _, e := range unique {
		if !e.Completed {
			run = 0
			continue
		}
		run++
		stats.LongestStreak = max(stats.LongestStreak, run)
	}

	stats.CompletionRate30d = percent(recent, RateWindowDays)
	return stats
}
