package types

import (
	"time"

	"cloud.google.com/go/civil"
)

// Period is the recurring window a goal is measured against.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// Periods lists every valid goal period in display order.
var Periods = []string{
	string(PeriodDaily),
	string(PeriodWeekly),
	string(PeriodMonthly),
	string(PeriodYearly),
}

// Valid reports whether p is one of the known periods.
func (p Period) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// DefaultColor is assigned to trackables created without a color.
const DefaultColor = "#3b82f6"

// Account is the owner every other record is scoped to.
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

// Trackable is a user-defined habit.
type Trackable struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color"`
	Icon        string    `json:"icon,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Entry is one day's completion record for a trackable.
// (TrackableID, Date) is unique.
type Entry struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"-"`
	TrackableID string     `json:"trackable_id"`
	Date        civil.Date `json:"date"`
	Completed   bool       `json:"completed"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Goal is a target number of completions per period.
type Goal struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"-"`
	TrackableID  string    `json:"trackable_id"`
	TargetValue  int       `json:"target_value"`
	TargetPeriod Period    `json:"target_period"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DashboardSettings holds which trackables the dashboard shows and in what order.
type DashboardSettings struct {
	OwnerID            string    `json:"-"`
	SelectedTrackables []string  `json:"selected_trackables"`
	TrackableOrder     []string  `json:"trackable_order"`
	IsDefault          bool      `json:"is_default"`
	CreatedAt          time.Time `json:"created_at,omitempty"`
	UpdatedAt          time.Time `json:"updated_at,omitempty"`
}

// EntryFilter narrows entry listings. Zero values mean unbounded.
type EntryFilter struct {
	TrackableID string
	From        civil.Date
	To          civil.Date
}

// --- Request types ---

// CreateTrackableRequest is the body of POST /trackables.
type CreateTrackableRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

// UpdateTrackableRequest is the body of PATCH /trackables/{id}.
// Nil fields are left unchanged.
type UpdateTrackableRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"`
}

// CheckInRequest is the body of PUT /trackables/{id}/entries/{date}.
// An empty body checks the day in as completed. Nil notes keep the
// entry's existing notes.
type CheckInRequest struct {
	Completed *bool   `json:"completed"`
	Notes     *string `json:"notes"`
}

// NotesRequest is the body of PUT /trackables/{id}/entries/{date}/notes.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// GoalRequest is the body of POST /trackables/{id}/goals.
type GoalRequest struct {
	TargetValue  int    `json:"target_value"`
	TargetPeriod string `json:"target_period"`
}

// UpdateGoalRequest is the body of PATCH /goals/{id}.
type UpdateGoalRequest struct {
	TargetValue  *int    `json:"target_value"`
	TargetPeriod *string `json:"target_period"`
}

// DashboardSettingsRequest is the body of PUT /dashboard/settings.
type DashboardSettingsRequest struct {
	SelectedTrackables []string `json:"selected_trackables"`
	TrackableOrder     []string `json:"trackable_order"`
}

// ToggleRequest is the body of POST /dashboard/settings/toggle.
type ToggleRequest struct {
	TrackableID string `json:"trackable_id"`
	Selected    bool   `json:"selected"`
}

// MoveRequest is the body of POST /dashboard/settings/move.
type MoveRequest struct {
	TrackableID string `json:"trackable_id"`
	TargetID    string `json:"target_id"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
