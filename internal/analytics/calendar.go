package analytics

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/hyperengineering/tally/internal/types"
)

// Cell is one day of the contribution calendar.
type Cell struct {
	Date        civil.Date `json:"date"`
	Padding     bool       `json:"padding"`
	Completions int        `json:"completions"`
	HasEntry    bool       `json:"has_entry"`
	Intensity   float64    `json:"intensity"`
}

// Week is a calendar column; index 0 is Monday.
type Week [7]Cell

// MonthLabel anchors a month name at the week column holding its first day.
type MonthLabel struct {
	Month     string `json:"month"`
	WeekIndex int    `json:"week_index"`
}

// Calendar is the year-to-date contribution grid.
type Calendar struct {
	Start            civil.Date   `json:"start"`
	End              civil.Date   `json:"end"`
	PaddingDays      int          `json:"padding_days"`
	MaxCompletions   int          `json:"max_completions"`
	TotalCompletions int          `json:"total_completions"`
	Weeks            []Week       `json:"weeks"`
	Months           []MonthLabel `json:"months"`
}

// PaddingDays returns how many cells precede d so it lands in its
// Monday-first column: 0 for Monday through 6 for Sunday.
func PaddingDays(d civil.Date) int {
	return isoWeekday(d) - 1
}

// BuildCalendar lays out January 1 of today's year through today as weeks of
// seven cells. Entries may belong to one trackable (HasEntry view) or to all of
// an owner's trackables (Intensity view); completions are counted once per
// trackable and date.
//
// Padding cells fill the columns before January 1 and after today.
func BuildCalendar(entries []types.Entry, today civil.Date) Calendar {
	start := startOfYear(today)
	padding := PaddingDays(start)

	counts := make(map[civil.Date]int)
	for _, e := range dedupe(entries, true) {
		if e.Completed && within(e.Date, start, today) {
			counts[e.Date]++
		}
	}

	cal := Calendar{
		Start:       start,
		End:         today,
		PaddingDays: padding,
	}
	for _, n := range counts {
		cal.MaxCompletions = max(cal.MaxCompletions, n)
		cal.TotalCompletions += n
	}

	cells := make([]Cell, 0, padding+today.DaysSince(start)+7)
	for i := padding; i > 0; i-- {
		cells = append(cells, Cell{Date: start.AddDays(-i), Padding: true})
	}
	for d := start; !d.After(today); d = d.AddDays(1) {
		n := counts[d]
		c := Cell{Date: d, Completions: n, HasEntry: n > 0}
		if cal.MaxCompletions > 0 {
			c.Intensity = float64(n) / float64(cal.MaxCompletions)
		}
		cells = append(cells, c)
	}
	for d := today.AddDays(1); len(cells)%7 != 0; d = d.AddDays(1) {
		cells = append(cells, Cell{Date: d, Padding: true})
	}

	cal.Weeks = make([]Week, 0, len(cells)/7)
	for i := 0; i < len(cells); i += 7 {
		var w Week
		copy(w[:], cells[i:i+7])
		cal.Weeks = append(cal.Weeks, w)
	}

	cal.Months = monthLabels(start, today, padding)
	return cal
}

func monthLabels(start, today civil.Date, padding int) []MonthLabel {
	var labels []MonthLabel
	for m := time.January; m <= time.December; m++ {
		first := civil.Date{Year: start.Year, Month: m, Day: 1}
		if first.After(today) {
			break
		}
		labels = append(labels, MonthLabel{
			Month:     m.String()[:3],
			WeekIndex: (first.DaysSince(start) + padding) / 7,
		})
	}
	return labels
}
