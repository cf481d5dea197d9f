package api

import (
	"context"
	"io"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/hyperengineering/tally/internal/store"
	"github.com/hyperengineering/tally/internal/types"
)

const testToken = "test-token-12345"

var testAccount = types.Account{
	ID:       "acct-1",
	Email:    "user@example.com",
	Token:    testToken,
	Timezone: "UTC",
}

// mockAccounts resolves a single token to testAccount.
type mockAccounts struct {
	err error
}

func (m *mockAccounts) CreateAccount(ctx context.Context, email, timezone string) (*types.Account, error) {
	return nil, nil
}

func (m *mockAccounts) GetAccountByToken(ctx context.Context, token string) (*types.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	if token != testToken {
		return nil, store.ErrUnauthorized
	}
	a := testAccount
	return &a, nil
}

func (m *mockAccounts) GetAccountByEmail(ctx context.Context, email string) (*types.Account, error) {
	return nil, store.ErrNotFound
}

func (m *mockAccounts) ListAccounts(ctx context.Context) ([]types.Account, error) {
	return nil, nil
}

func (m *mockAccounts) DeleteAccount(ctx context.Context, id string) error {
	return nil
}

// mockStore implements store.Store over slices. Setting err makes every
// call fail with it.
type mockStore struct {
	trackables []types.Trackable
	entries    []types.Entry
	goals      []types.Goal
	settings   *types.DashboardSettings
	err        error
	pingErr    error
	upserts    []types.Entry
	nextID     int
}

func (m *mockStore) id(prefix string) string {
	m.nextID++
	return prefix + "-" + strconv.Itoa(m.nextID)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *mockStore) ListTrackables(ctx context.Context, ownerID string) ([]types.Trackable, error) {
	if m.err != nil {
		return nil, m.err
	}
	return slices.Clone(m.trackables), nil
}

func (m *mockStore) GetTrackable(ctx context.Context, ownerID, id string) (*types.Trackable, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, t := range m.trackables {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) CreateTrackable(ctx context.Context, ownerID string, t types.Trackable) (*types.Trackable, error) {
	if m.err != nil {
		return nil, m.err
	}
	t.ID = m.id("trk")
	t.OwnerID = ownerID
	if t.Color == "" {
		t.Color = types.DefaultColor
	}
	m.trackables = append(m.trackables, t)
	return &t, nil
}

func (m *mockStore) UpdateTrackable(ctx context.Context, ownerID string, t types.Trackable) (*types.Trackable, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.trackables {
		if m.trackables[i].ID == t.ID {
			m.trackables[i] = t
			return &t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) DeleteTrackable(ctx context.Context, ownerID, id string) error {
	if m.err != nil {
		return m.err
	}
	before := len(m.trackables)
	m.trackables = slices.DeleteFunc(m.trackables, func(t types.Trackable) bool { return t.ID == id })
	if len(m.trackables) == before {
		return store.ErrNotFound
	}
	return nil
}

func (m *mockStore) ListEntries(ctx context.Context, ownerID string, filter types.EntryFilter) ([]types.Entry, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []types.Entry{}
	for _, e := range m.entries {
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

func (m *mockStore) UpsertEntry(ctx context.Context, ownerID string, e types.Entry) (*types.Entry, error) {
	if m.err != nil {
		return nil, m.err
	}
	if _, err := m.GetTrackable(ctx, ownerID, e.TrackableID); err != nil {
		return nil, err
	}
	m.upserts = append(m.upserts, e)
	for i := range m.entries {
		if m.entries[i].TrackableID == e.TrackableID && m.entries[i].Date == e.Date {
			m.entries[i].Completed = e.Completed
			m.entries[i].Notes = e.Notes
			saved := m.entries[i]
			return &saved, nil
		}
	}
	e.ID = m.id("ent")
	m.entries = append(m.entries, e)
	return &e, nil
}

func (m *mockStore) DeleteEntry(ctx context.Context, ownerID, trackableID string, date civil.Date) error {
	if m.err != nil {
		return m.err
	}
	before := len(m.entries)
	m.entries = slices.DeleteFunc(m.entries, func(e types.Entry) bool {
		return e.TrackableID == trackableID && e.Date == date
	})
	if len(m.entries) == before {
		return store.ErrNotFound
	}
	return nil
}

func (m *mockStore) ListGoals(ctx context.Context, ownerID, trackableID string) ([]types.Goal, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []types.Goal{}
	for _, g := range m.goals {
		if trackableID == "" || g.TrackableID == trackableID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockStore) GetGoal(ctx context.Context, ownerID, id string) (*types.Goal, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, g := range m.goals {
		if g.ID == id {
			return &g, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) CreateGoal(ctx context.Context, ownerID string, g types.Goal) (*types.Goal, error) {
	if m.err != nil {
		return nil, m.err
	}
	if _, err := m.GetTrackable(ctx, ownerID, g.TrackableID); err != nil {
		return nil, err
	}
	g.ID = m.id("goal")
	m.goals = append([]types.Goal{g}, m.goals...)
	return &g, nil
}

func (m *mockStore) UpdateGoal(ctx context.Context, ownerID string, g types.Goal) (*types.Goal, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.goals {
		if m.goals[i].ID == g.ID {
			m.goals[i] = g
			return &g, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) DeleteGoal(ctx context.Context, ownerID, id string) error {
	if m.err != nil {
		return m.err
	}
	before := len(m.goals)
	m.goals = slices.DeleteFunc(m.goals, func(g types.Goal) bool { return g.ID == id })
	if len(m.goals) == before {
		return store.ErrNotFound
	}
	return nil
}

func (m *mockStore) GetDashboardSettings(ctx context.Context, ownerID string) (*types.DashboardSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.settings == nil {
		return nil, store.ErrNotFound
	}
	s := *m.settings
	return &s, nil
}

func (m *mockStore) SaveDashboardSettings(ctx context.Context, ownerID string, s types.DashboardSettings) (*types.DashboardSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s.IsDefault = false
	m.settings = &s
	return &s, nil
}

func (m *mockStore) DeleteDashboardSettings(ctx context.Context, ownerID string) error {
	if m.err != nil {
		return m.err
	}
	m.settings = nil
	return nil
}

func (m *mockStore) Close() error {
	return nil
}

// fixedToday is the date every routed test request sees unless it passes
// an explicit today parameter.
var fixedToday = civil.Date{Year: 2024, Month: time.June, Day: 12}

func newTestHandler(s *mockStore) *Handler {
	h := NewHandler(s, &mockAccounts{}, "1.0.0", func(email string) bool {
		return email == "demo@example.com"
	})
	h.now = func() time.Time {
		return time.Date(2024, time.June, 12, 9, 30, 0, 0, time.UTC)
	}
	return h
}

// serve routes an authenticated request through the full router.
func serve(t *testing.T, h *Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(w, req)
	return w
}

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}
