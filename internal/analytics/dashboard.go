package analytics

import (
	"slices"

	"github.com/hyperengineering/tally/internal/types"
)

// DefaultSettings shows every trackable in creation order.
// trackables must already be sorted by creation time.
func DefaultSettings(trackables []types.Trackable) types.DashboardSettings {
	ids := make([]string, len(trackables))
	for i, t := range trackables {
		ids[i] = t.ID
	}
	return types.DashboardSettings{
		SelectedTrackables: ids,
		TrackableOrder:     slices.Clone(ids),
		IsDefault:          true,
	}
}

// PruneSettings drops ids that no longer name one of trackables, such as a
// trackable deleted after the settings were saved. The input is not modified.
func PruneSettings(s types.DashboardSettings, trackables []types.Trackable) types.DashboardSettings {
	known := make(map[string]bool, len(trackables))
	for _, t := range trackables {
		known[t.ID] = true
	}
	keep := func(ids []string) []string {
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			if known[id] {
				out = append(out, id)
			}
		}
		return out
	}
	out := s
	out.SelectedTrackables = keep(s.SelectedTrackables)
	out.TrackableOrder = keep(s.TrackableOrder)
	return out
}

// ResolveOrder returns the selected trackables sorted by their position in
// order. Trackables missing from order go last, keeping their original
// relative order.
func ResolveOrder(trackables []types.Trackable, selected, order []string) []types.Trackable {
	chosen := make(map[string]bool, len(selected))
	for _, id := range selected {
		chosen[id] = true
	}
	rank := make(map[string]int, len(order))
	for i, id := range order {
		if _, seen := rank[id]; !seen {
			rank[id] = i
		}
	}
	position := func(id string) int {
		if i, ok := rank[id]; ok {
			return i
		}
		return len(order)
	}

	out := make([]types.Trackable, 0, len(selected))
	for _, t := range trackables {
		if chosen[t.ID] {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b types.Trackable) int {
		return position(a.ID) - position(b.ID)
	})
	return out
}

// ToggleSelection selects or deselects id. Selecting also appends id to the
// order when it is not already there; deselecting keeps its order slot so a
// later reselect returns it to the same place.
func ToggleSelection(s types.DashboardSettings, id string, checked bool) types.DashboardSettings {
	out := s
	out.IsDefault = false
	out.TrackableOrder = slices.Clone(s.TrackableOrder)
	if checked {
		out.SelectedTrackables = slices.Clone(s.SelectedTrackables)
		if !slices.Contains(out.SelectedTrackables, id) {
			out.SelectedTrackables = append(out.SelectedTrackables, id)
		}
		if !slices.Contains(out.TrackableOrder, id) {
			out.TrackableOrder = append(out.TrackableOrder, id)
		}
		return out
	}
	out.SelectedTrackables = slices.DeleteFunc(slices.Clone(s.SelectedTrackables), func(v string) bool {
		return v == id
	})
	return out
}

// MoveBefore implements drag-and-drop reordering: dragged is removed and
// reinserted at target's original index. The input is not modified.
func MoveBefore(order []string, dragged, target string) []string {
	out := slices.Clone(order)
	from := slices.Index(out, dragged)
	to := slices.Index(out, target)
	if from < 0 || to < 0 || from == to {
		return out
	}
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, dragged)
}
