package store

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/hyperengineering/tally/internal/types"
)

// Accounts manages the owners every record is scoped to.
type Accounts interface {
	CreateAccount(ctx context.Context, email, timezone string) (*types.Account, error)
	GetAccountByToken(ctx context.Context, token string) (*types.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*types.Account, error)
	ListAccounts(ctx context.Context) ([]types.Account, error)
	DeleteAccount(ctx context.Context, id string) error
}

// Store is the Record Store: trackables, entries, goals and dashboard
// settings, always scoped to an owner. Records belonging to another owner
// behave as if they do not exist.
type Store interface {
	// ListTrackables returns the owner's trackables oldest first.
	ListTrackables(ctx context.Context, ownerID string) ([]types.Trackable, error)
	GetTrackable(ctx context.Context, ownerID, id string) (*types.Trackable, error)
	CreateTrackable(ctx context.Context, ownerID string, t types.Trackable) (*types.Trackable, error)
	// UpdateTrackable replaces the mutable fields of an existing trackable.
	UpdateTrackable(ctx context.Context, ownerID string, t types.Trackable) (*types.Trackable, error)
	// DeleteTrackable removes the trackable with its entries and goals.
	DeleteTrackable(ctx context.Context, ownerID, id string) error

	// ListEntries returns entries ordered by date, narrowed by filter.
	ListEntries(ctx context.Context, ownerID string, filter types.EntryFilter) ([]types.Entry, error)
	// UpsertEntry inserts or replaces the entry keyed by (TrackableID, Date).
	UpsertEntry(ctx context.Context, ownerID string, e types.Entry) (*types.Entry, error)
	DeleteEntry(ctx context.Context, ownerID, trackableID string, date civil.Date) error

	// ListGoals returns a trackable's goals newest first. An empty
	// trackableID lists all of the owner's goals.
	ListGoals(ctx context.Context, ownerID, trackableID string) ([]types.Goal, error)
	GetGoal(ctx context.Context, ownerID, id string) (*types.Goal, error)
	CreateGoal(ctx context.Context, ownerID string, g types.Goal) (*types.Goal, error)
	UpdateGoal(ctx context.Context, ownerID string, g types.Goal) (*types.Goal, error)
	DeleteGoal(ctx context.Context, ownerID, id string) error

	// GetDashboardSettings returns ErrNotFound when the owner has never saved
	// settings.
	GetDashboardSettings(ctx context.Context, ownerID string) (*types.DashboardSettings, error)
	SaveDashboardSettings(ctx context.Context, ownerID string, s types.DashboardSettings) (*types.DashboardSettings, error)
	DeleteDashboardSettings(ctx context.Context, ownerID string) error

	Close() error
}
