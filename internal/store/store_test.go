package store

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/hyperengineering/tally/internal/types"
)

// mockStore is a compile-time check that the Store interface can be implemented.
type mockStore struct{}

var _ Store = (*mockStore)(nil)

func (m *mockStore) ListTrackables(ctx context.Context, ownerID string) ([]types.Trackable, error) {
	return nil, nil
}
func (m *mockStore) GetTrackable(ctx context.Context, ownerID, id string) (*types.Trackable, error) {
	return nil, nil
}
func (m *mockStore) CreateTrackable(ctx context.Context, ownerID string, t types.Trackable) (*types.Trackable, error) {
	return nil, nil
}
func (m *mockStore) UpdateTrackable(ctx context.Context, ownerID string, t types.Trackable) (*types.Trackable, error) {
	return nil, nil
}
func (m *mockStore) DeleteTrackable(ctx context.Context, ownerID, id string) error {
	return nil
}
func (m *mockStore) ListEntries(ctx context.Context, ownerID string, filter types.EntryFilter) ([]types.Entry, error) {
	return nil, nil
}
func (m *mockStore) UpsertEntry(ctx context.Context, ownerID string, e types.Entry) (*types.Entry, error) {
	return nil, nil
}
func (m *mockStore) DeleteEntry(ctx context.Context, ownerID, trackableID string, date civil.Date) error {
	return nil
}
func (m *mockStore) ListGoals(ctx context.Context, ownerID, trackableID string) ([]types.Goal, error) {
	return nil, nil
}
func (m *mockStore) GetGoal(ctx context.Context, ownerID, id string) (*types.Goal, error) {
	return nil, nil
}
func (m *mockStore) CreateGoal(ctx context.Context, ownerID string, g types.Goal) (*types.Goal, error) {
	return nil, nil
}
func (m *mockStore) UpdateGoal(ctx context.Context, ownerID string, g types.Goal) (*types.Goal, error) {
	return nil, nil
}
func (m *mockStore) DeleteGoal(ctx context.Context, ownerID, id string) error {
	return nil
}
func (m *mockStore) GetDashboardSettings(ctx context.Context, ownerID string) (*types.DashboardSettings, error) {
	return nil, nil
}
func (m *mockStore) SaveDashboardSettings(ctx context.Context, ownerID string, s types.DashboardSettings) (*types.DashboardSettings, error) {
	return nil, nil
}
func (m *mockStore) DeleteDashboardSettings(ctx context.Context, ownerID string) error {
	return nil
}
func (m *mockStore) Close() error {
	return nil
}
