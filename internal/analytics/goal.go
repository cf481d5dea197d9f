package analytics

import (
	"cloud.google.com/go/civil"

	"github.com/hyperengineering/tally/internal/types"
)

// MinSeriesDays is the minimum number of points in a progress series.
const MinSeriesDays = 30

// Status classifies goal progress for display.
type Status string

const (
	StatusAchieved Status = "achieved"
	StatusOnTrack  Status = "on_track"
	StatusBehind   Status = "behind"
	StatusAtRisk   Status = "at_risk"
)

// StatusFor maps a progress percentage to a Status.
func StatusFor(percentage int) Status {
	switch {
	case percentage >= 100:
		return StatusAchieved
	case percentage >= 75:
		return StatusOnTrack
	case percentage >= 50:
		return StatusBehind
	default:
		return StatusAtRisk
	}
}

// Progress is a goal's standing within its current period.
type Progress struct {
	GoalID      string       `json:"goal_id"`
	Period      types.Period `json:"period"`
	Current     int          `json:"current"`
	Target      int          `json:"target"`
	Percentage  int          `json:"percentage"`
	Status      Status       `json:"status"`
	PeriodStart civil.Date   `json:"period_start"`
	PeriodEnd   civil.Date   `json:"period_end"`
}

// BarWidth returns the percentage clamped to [0, 100] for progress bars.
// Percentage itself is never clamped; over-achievement is reported as is.
func (p Progress) BarWidth() int {
	return min(max(p.Percentage, 0), 100)
}

// SeriesPoint is one day of a goal trend chart. Target is nil for days before
// the period starts.
type SeriesPoint struct {
	Date     civil.Date `json:"date"`
	Progress int        `json:"progress"`
	Target   *int       `json:"target"`
}

// PeriodWindow returns the inclusive calendar range of the period containing
// today. Weeks run Monday through Sunday. Unknown periods fall back to daily.
func PeriodWindow(period types.Period, today civil.Date) (start, end civil.Date) {
	switch period {
	case types.PeriodWeekly:
		start = startOfWeek(today)
		return start, start.AddDays(6)
	case types.PeriodMonthly:
		return startOfMonth(today), endOfMonth(today)
	case types.PeriodYearly:
		return startOfYear(today), endOfYear(today)
	default:
		return today, today
	}
}

// PeriodDays returns the number of days in the period containing today.
func PeriodDays(period types.Period, today civil.Date) int {
	start, end := PeriodWindow(period, today)
	return end.DaysSince(start) + 1
}

// ComputeProgress counts completed entries inside the goal's current period.
// TargetValue is positive by the goal invariant.
func ComputeProgress(goal types.Goal, entries []types.Entry, today civil.Date) Progress {
	start, end := PeriodWindow(goal.TargetPeriod, today)

	current := 0
	for _, e := range dedupe(entries, false) {
		if e.Completed && within(e.Date, start, end) {
			current++
		}
	}

	pct := percent(current, goal.TargetValue)
	return Progress{
		GoalID:      goal.ID,
		Period:      goal.TargetPeriod,
		Current:     current,
		Target:      goal.TargetValue,
		Percentage:  pct,
		Status:      StatusFor(pct),
		PeriodStart: start,
		PeriodEnd:   end,
	}
}

// ProgressSeries returns max(30, period length) daily points ending today.
// Each point holds the cumulative completed count from the period start
// through that day.
func ProgressSeries(goal types.Goal, entries []types.Entry, today civil.Date) []SeriesPoint {
	start, _ := PeriodWindow(goal.TargetPeriod, today)
	days := max(MinSeriesDays, PeriodDays(goal.TargetPeriod, today))
	first := today.AddDays(-(days - 1))

	done := make(map[civil.Date]bool)
	for _, e := range dedupe(entries, false) {
		if e.Completed {
			done[e.Date] = true
		}
	}

	cumulative := 0
	// Completions between the period start and the first charted day.
	for d := start; d.Before(first); d = d.AddDays(1) {
		if done[d] {
			cumulative++
		}
	}

	points := make([]SeriesPoint, 0, days)
	for d := first; !d.After(today); d = d.AddDays(1) {
		p := SeriesPoint{Date: d}
		if !d.Before(start) {
			if done[d] {
				cumulative++
			}
			target := goal.TargetValue
			p.Progress = cumulative
			p.Target = &target
		}
		points = append(points, p)
	}
	return points
}

// ActiveGoals groups an owner's goals by trackable and picks each
// trackable's active goal.
func ActiveGoals(goals []types.Goal) map[string]types.Goal {
	byTrackable := make(map[string][]types.Goal)
	for _, g := range goals {
		byTrackable[g.TrackableID] = append(byTrackable[g.TrackableID], g)
	}
	active := make(map[string]types.Goal, len(byTrackable))
	for id, gs := range byTrackable {
		active[id], _ = ActiveGoal(gs)
	}
	return active
}

// ActiveGoal returns the most recently created goal. Only one goal per
// trackable is surfaced even though several may exist.
func ActiveGoal(goals []types.Goal) (types.Goal, bool) {
	if len(goals) == 0 {
		return types.Goal{}, false
	}
	active := goals[0]
	for _, g := range goals[1:] {
		if g.CreatedAt.After(active.CreatedAt) {
			active = g
		}
	}
	return active, true
}
