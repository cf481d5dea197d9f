package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/oklog/ulid/v2"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/hyperengineering/tally/internal/types"
)

// SQLiteStore is the SQLite-backed Record Store. It also manages accounts.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ Store    = (*SQLiteStore)(nil)
	_ Accounts = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens the database at dbPath, applies pragmas and runs
// migrations. ":memory:" opens a private in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Pragmas are per connection and every :memory: connection is a
	// separate database, so keep a single connection.
	db.SetMaxOpenConns(1)

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// enablePragmas sets SQLite pragmas for optimal performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// DB exposes the underlying handle for diagnostics.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func checkAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface{ Scan(...any) error }

// --- Accounts ---

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

const accountColumns = `id, email, token, timezone, created_at`

func scanAccount(row scanner) (*types.Account, error) {
	var a types.Account
	var createdAt string
	if err := row.Scan(&a.ID, &a.Email, &a.Token, &a.Timezone, &createdAt); err != nil {
		return nil, err
	}
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

// CreateAccount registers a new account with a freshly generated API token.
func (s *SQLiteStore) CreateAccount(ctx context.Context, email, timezone string) (*types.Account, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	if timezone == "" {
		timezone = "UTC"
	}
	a := types.Account{
		ID:        ulid.Make().String(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Token:     token,
		Timezone:  timezone,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, token, timezone, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.Email, a.Token, a.Timezone, formatTime(a.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("account %s: %w", a.Email, ErrDuplicate)
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return &a, nil
}

// GetAccountByToken resolves an API token. Unknown tokens yield ErrUnauthorized.
func (s *SQLiteStore) GetAccountByToken(ctx context.Context, token string) (*types.Account, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE token = ?`, token)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}

// GetAccountByEmail looks an account up by its (case-insensitive) email.
func (s *SQLiteStore) GetAccountByEmail(ctx context.Context, email string) (*types.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}

// ListAccounts returns all accounts oldest first.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]types.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []types.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// DeleteAccount removes an account and everything it owns.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return checkAffected(result)
}

// --- Trackables ---

const trackableColumns = `id, owner_id, name, description, color, icon, created_at, updated_at`

func scanTrackable(row scanner) (*types.Trackable, error) {
	var t types.Trackable
	var createdAt, updatedAt string
	err := row.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Description, &t.Color, &t.Icon, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}

// ListTrackables returns the owner's trackables in creation order.
func (s *SQLiteStore) ListTrackables(ctx context.Context, ownerID string) ([]types.Trackable, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+trackableColumns+`
		FROM trackables
		WHERE owner_id = ?
		ORDER BY created_at ASC, id ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query trackables: %w", err)
	}
	defer rows.Close()

	trackables := []types.Trackable{}
	for rows.Next() {
		t, err := scanTrackable(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trackable: %w", err)
		}
		trackables = append(trackables, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trackables: %w", err)
	}
	return trackables, nil
}

// GetTrackable retrieves one of the owner's trackables.
func (s *SQLiteStore) GetTrackable(ctx context.Context, ownerID, id string) (*types.Trackable, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+trackableColumns+` FROM trackables WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	t, err := scanTrackable(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan trackable: %w", err)
	}
	return t, nil
}

// CreateTrackable stores a new trackable, assigning its ID and timestamps.
func (s *SQLiteStore) CreateTrackable(ctx context.Context, ownerID string, t types.Trackable) (*types.Trackable, error) {
	now := time.Now().UTC().Truncate(time.Second)
	t.ID = ulid.Make().String()
	t.OwnerID = ownerID
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Color == "" {
		t.Color = types.DefaultColor
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trackables (`+trackableColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.OwnerID, t.Name, t.Description, t.Color, t.Icon, formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert trackable: %w", err)
	}
	return &t, nil
}

// UpdateTrackable overwrites name, description, color and icon.
func (s *SQLiteStore) UpdateTrackable(ctx context.Context, ownerID string, t types.Trackable) (*types.Trackable, error) {
	now := time.Now().UTC().Truncate(time.Second)
	result, err := s.db.ExecContext(ctx, `
		UPDATE trackables
		SET name = ?, description = ?, color = ?, icon = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`, t.Name, t.Description, t.Color, t.Icon, formatTime(now), t.ID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("update trackable: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return nil, err
	}
	return s.GetTrackable(ctx, ownerID, t.ID)
}

// DeleteTrackable removes a trackable; entries and goals cascade.
func (s *SQLiteStore) DeleteTrackable(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM trackables WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete trackable: %w", err)
	}
	return checkAffected(result)
}

// --- Entries ---

const entryColumns = `id, owner_id, trackable_id, date, completed, notes, created_at, updated_at`

func scanEntry(row scanner) (*types.Entry, error) {
	var e types.Entry
	var date, createdAt, updatedAt string
	err := row.Scan(&e.ID, &e.OwnerID, &e.TrackableID, &date, &e.Completed, &e.Notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	d, err := civil.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("parse entry date %q: %w", date, err)
	}
	e.Date = d
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

// ListEntries returns the owner's entries ordered by date then trackable.
// Zero filter fields are unbounded.
func (s *SQLiteStore) ListEntries(ctx context.Context, ownerID string, filter types.EntryFilter) ([]types.Entry, error) {
	var where strings.Builder
	args := []any{ownerID}
	where.WriteString("owner_id = ?")
	if filter.TrackableID != "" {
		where.WriteString(" AND trackable_id = ?")
		args = append(args, filter.TrackableID)
	}
	if filter.From != (civil.Date{}) {
		where.WriteString(" AND date >= ?")
		args = append(args, filter.From.String())
	}
	if filter.To != (civil.Date{}) {
		where.WriteString(" AND date <= ?")
		args = append(args, filter.To.String())
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE `+where.String()+`
		ORDER BY date ASC, trackable_id ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []types.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// UpsertEntry records completion and notes for (TrackableID, Date). An
// existing row keeps its ID and CreatedAt. The trackable must belong to the
// owner.
func (s *SQLiteStore) UpsertEntry(ctx context.Context, ownerID string, e types.Entry) (*types.Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM trackables WHERE id = ? AND owner_id = ?`, e.TrackableID, ownerID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("check trackable: %w", err)
	}

	now := formatTime(time.Now())
	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (trackable_id, date) DO UPDATE SET
			completed = excluded.completed,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`, ulid.Make().String(), ownerID, e.TrackableID, e.Date.String(), e.Completed, e.Notes, now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert entry: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM entries WHERE trackable_id = ? AND date = ?
	`, e.TrackableID, e.Date.String())
	saved, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return saved, nil
}

// DeleteEntry removes the entry for (trackableID, date).
func (s *SQLiteStore) DeleteEntry(ctx context.Context, ownerID, trackableID string, date civil.Date) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM entries WHERE owner_id = ? AND trackable_id = ? AND date = ?
	`, ownerID, trackableID, date.String())
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return checkAffected(result)
}

// --- Goals ---

const goalColumns = `id, owner_id, trackable_id, target_value, target_period, created_at, updated_at`

func scanGoal(row scanner) (*types.Goal, error) {
	var g types.Goal
	var period, createdAt, updatedAt string
	err := row.Scan(&g.ID, &g.OwnerID, &g.TrackableID, &g.TargetValue, &period, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	g.TargetPeriod = types.Period(period)
	g.CreatedAt = parseTime(createdAt)
	g.UpdatedAt = parseTime(updatedAt)
	return &g, nil
}

// ListGoals returns a trackable's goals, most recently created first. An
// empty trackableID lists every goal the owner has.
func (s *SQLiteStore) ListGoals(ctx context.Context, ownerID, trackableID string) ([]types.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+goalColumns+`
		FROM goals
		WHERE owner_id = ? AND (? = '' OR trackable_id = ?)
		ORDER BY created_at DESC, id DESC
	`, ownerID, trackableID, trackableID)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	goals := []types.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return goals, nil
}

// GetGoal retrieves one of the owner's goals.
func (s *SQLiteStore) GetGoal(ctx context.Context, ownerID, id string) (*types.Goal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ? AND owner_id = ?`, id, ownerID)
	g, err := scanGoal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan goal: %w", err)
	}
	return g, nil
}

// CreateGoal attaches a goal to one of the owner's trackables.
func (s *SQLiteStore) CreateGoal(ctx context.Context, ownerID string, g types.Goal) (*types.Goal, error) {
	if _, err := s.GetTrackable(ctx, ownerID, g.TrackableID); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	g.ID = ulid.Make().String()
	g.OwnerID = ownerID
	g.CreatedAt = now
	g.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.OwnerID, g.TrackableID, g.TargetValue, string(g.TargetPeriod), formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	return &g, nil
}

// UpdateGoal overwrites a goal's target value and period.
func (s *SQLiteStore) UpdateGoal(ctx context.Context, ownerID string, g types.Goal) (*types.Goal, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE goals SET target_value = ?, target_period = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`, g.TargetValue, string(g.TargetPeriod), formatTime(time.Now()), g.ID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return nil, err
	}
	return s.GetGoal(ctx, ownerID, g.ID)
}

// DeleteGoal removes one of the owner's goals.
func (s *SQLiteStore) DeleteGoal(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return checkAffected(result)
}

// --- Dashboard settings ---

// GetDashboardSettings loads the owner's saved settings.
func (s *SQLiteStore) GetDashboardSettings(ctx context.Context, ownerID string) (*types.DashboardSettings, error) {
	var selectedJSON, orderJSON, createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT selected_trackables, trackable_order, created_at, updated_at
		FROM dashboard_settings WHERE owner_id = ?
	`, ownerID).Scan(&selectedJSON, &orderJSON, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan dashboard settings: %w", err)
	}

	settings := types.DashboardSettings{
		OwnerID:   ownerID,
		CreatedAt: parseTime(createdAt),
		UpdatedAt: parseTime(updatedAt),
	}
	if err := json.Unmarshal([]byte(selectedJSON), &settings.SelectedTrackables); err != nil {
		return nil, fmt.Errorf("parse selected trackables: %w", err)
	}
	if err := json.Unmarshal([]byte(orderJSON), &settings.TrackableOrder); err != nil {
		return nil, fmt.Errorf("parse trackable order: %w", err)
	}
	return &settings, nil
}

// SaveDashboardSettings creates or replaces the owner's settings.
func (s *SQLiteStore) SaveDashboardSettings(ctx context.Context, ownerID string, settings types.DashboardSettings) (*types.DashboardSettings, error) {
	selected := settings.SelectedTrackables
	if selected == nil {
		selected = []string{}
	}
	order := settings.TrackableOrder
	if order == nil {
		order = []string{}
	}
	selectedJSON, err := json.Marshal(selected)
	if err != nil {
		return nil, fmt.Errorf("marshal selected trackables: %w", err)
	}
	orderJSON, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("marshal trackable order: %w", err)
	}

	now := formatTime(time.Now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dashboard_settings (owner_id, selected_trackables, trackable_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET
			selected_trackables = excluded.selected_trackables,
			trackable_order = excluded.trackable_order,
			updated_at = excluded.updated_at
	`, ownerID, string(selectedJSON), string(orderJSON), now, now)
	if err != nil {
		return nil, fmt.Errorf("save dashboard settings: %w", err)
	}
	return s.GetDashboardSettings(ctx, ownerID)
}

// DeleteDashboardSettings drops saved settings so the defaults apply again.
// Deleting settings that were never saved is not an error.
func (s *SQLiteStore) DeleteDashboardSettings(ctx context.Context, ownerID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM dashboard_settings WHERE owner_id = ?`, ownerID); err != nil {
		return fmt.Errorf("delete dashboard settings: %w", err)
	}
	return nil
}
