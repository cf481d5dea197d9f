package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	"cloud.google.com/go/civil"

	"github.com/hyperengineering/tally/internal/types"
)

// DemoDays is how many days of history the demo fixture carries, ending today.
const DemoDays = 90

// DemoStore is a read-only in-memory Record Store serving a fixed showcase
// data set. Every mutation returns ErrReadOnly.
type DemoStore struct {
	trackables []types.Trackable
	entries    []types.Entry
	goals      []types.Goal
	settings   types.DashboardSettings
}

var _ Store = (*DemoStore)(nil)

type demoHabit struct {
	name        string
	description string
	color       string
	icon        string
	rate        int // percent of days completed
}

var demoHabits = []demoHabit{
	{"Morning run", "Run at least 3 km before work", "#ef4444", "run", 85},
	{"Read", "Twenty pages of a book", "#3b82f6", "book", 70},
	{"Meditate", "Ten minutes of breathing", "#10b981", "leaf", 55},
	{"No sugar", "Skip desserts and sweet drinks", "#f59e0b", "apple", 40},
}

var demoNotes = []string{
	"Felt great today",
	"Hard to get started",
	"Kept it short",
}

// NewDemoStore builds the fixture for ownerID with history ending at today.
// The same arguments always produce the same data.
func NewDemoStore(ownerID string, today civil.Date) *DemoStore {
	first := today.AddDays(-(DemoDays - 1))
	base := first.In(time.UTC)

	d := &DemoStore{}
	for i, h := range demoHabits {
		created := base.Add(time.Duration(i) * time.Minute)
		d.trackables = append(d.trackables, types.Trackable{
			ID:          fmt.Sprintf("demo-trackable-%d", i+1),
			OwnerID:     ownerID,
			Name:        h.name,
			Description: h.description,
			Color:       h.color,
			Icon:        h.icon,
			CreatedAt:   created,
			UpdatedAt:   created,
		})
	}

	for day := 0; day < DemoDays; day++ {
		date := first.AddDays(day)
		back := DemoDays - 1 - day
		for i, h := range demoHabits {
			v := (back*37 + i*11) % 100
			var completed bool
			switch {
			case v < h.rate:
				completed = true
			case v%3 == 0:
				completed = false
			default:
				continue
			}
			stamp := date.In(time.UTC).Add(20 * time.Hour)
			e := types.Entry{
				ID:          fmt.Sprintf("demo-entry-%d-%s", i+1, date),
				OwnerID:     ownerID,
				TrackableID: d.trackables[i].ID,
				Date:        date,
				Completed:   completed,
				CreatedAt:   stamp,
				UpdatedAt:   stamp,
			}
			if v%17 == 0 {
				e.Notes = demoNotes[(back+i)%len(demoNotes)]
			}
			d.entries = append(d.entries, e)
		}
	}

	d.goals = []types.Goal{
		{
			ID:           "demo-goal-1",
			OwnerID:      ownerID,
			TrackableID:  d.trackables[0].ID,
			TargetValue:  5,
			TargetPeriod: types.PeriodWeekly,
			CreatedAt:    base.Add(time.Hour),
			UpdatedAt:    base.Add(time.Hour),
		},
		{
			ID:           "demo-goal-2",
			OwnerID:      ownerID,
			TrackableID:  d.trackables[1].ID,
			TargetValue:  20,
			TargetPeriod: types.PeriodMonthly,
			CreatedAt:    base.Add(2 * time.Hour),
			UpdatedAt:    base.Add(2 * time.Hour),
		},
	}

	d.settings = types.DashboardSettings{
		OwnerID:            ownerID,
		SelectedTrackables: []string{d.trackables[0].ID, d.trackables[1].ID, d.trackables[2].ID},
		TrackableOrder:     []string{d.trackables[1].ID, d.trackables[0].ID, d.trackables[2].ID, d.trackables[3].ID},
		CreatedAt:          base,
		UpdatedAt:          base,
	}
	return d
}

func (d *DemoStore) ListTrackables(ctx context.Context, ownerID string) ([]types.Trackable, error) {
	return slices.Clone(d.trackables), nil
}

func (d *DemoStore) GetTrackable(ctx context.Context, ownerID, id string) (*types.Trackable, error) {
	for _, t := range d.trackables {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (d *DemoStore) ListEntries(ctx context.Context, ownerID string, filter types.EntryFilter) ([]types.Entry, error) {
	out := []types.Entry{}
	for _, e := range d.entries {
		if filter.TrackableID != "" && e.TrackableID != filter.TrackableID {
			continue
		}
		if filter.From != (civil.Date{}) && e.Date.Before(filter.From) {
			continue
		}
		if filter.To != (civil.Date{}) && e.Date.After(filter.To) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (d *DemoStore) ListGoals(ctx context.Context, ownerID, trackableID string) ([]types.Goal, error) {
	out := []types.Goal{}
	// Newest first, matching SQLiteStore.
	for i := len(d.goals) - 1; i >= 0; i-- {
		if trackableID == "" || d.goals[i].TrackableID == trackableID {
			out = append(out, d.goals[i])
		}
	}
	return out, nil
}

func (d *DemoStore) GetGoal(ctx context.Context, ownerID, id string) (*types.Goal, error) {
	for _, g := range d.goals {
		if g.ID == id {
			return &g, nil
		}
	}
	return nil, ErrNotFound
}

func (d *DemoStore) GetDashboardSettings(ctx context.Context, ownerID string) (*types.DashboardSettings, error) {
	s := d.settings
	s.SelectedTrackables = slices.Clone(d.settings.SelectedTrackables)
	s.TrackableOrder = slices.Clone(d.settings.TrackableOrder)
	return &s, nil
}

func (d *DemoStore) CreateTrackable(ctx context.Context, ownerID string, t types.Trackable) (*types.Trackable, error) {
	return nil, ErrReadOnly
}

func (d *DemoStore) UpdateTrackable(ctx context.Context, ownerID string, t types.Trackable) (*types.Trackable, error) {
	return nil, ErrReadOnly
}

func (d *DemoStore) DeleteTrackable(ctx context.Context, ownerID, id string) error {
	return ErrReadOnly
}

func (d *DemoStore) UpsertEntry(ctx context.Context, ownerID string, e types.Entry) (*types.Entry, error) {
	return nil, ErrReadOnly
}

func (d *DemoStore) DeleteEntry(ctx context.Context, ownerID, trackableID string, date civil.Date) error {
	return ErrReadOnly
}

func (d *DemoStore) CreateGoal(ctx context.Context, ownerID string, g types.Goal) (*types.Goal, error) {
	return nil, ErrReadOnly
}

func (d *DemoStore) UpdateGoal(ctx context.Context, ownerID string, g types.Goal) (*types.Goal, error) {
	return nil, ErrReadOnly
}

func (d *DemoStore) DeleteGoal(ctx context.Context, ownerID, id string) error {
	return ErrReadOnly
}

func (d *DemoStore) SaveDashboardSettings(ctx context.Context, ownerID string, s types.DashboardSettings) (*types.DashboardSettings, error) {
	return nil, ErrReadOnly
}

func (d *DemoStore) DeleteDashboardSettings(ctx context.Context, ownerID string) error {
	return ErrReadOnly
}

// Close is a no-op.
func (d *DemoStore) Close() error {
	return nil
}
