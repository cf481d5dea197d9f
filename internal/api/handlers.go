package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/civil"

	"github.com/hyperengineering/tally/internal/store"
	"github.com/hyperengineering/tally/internal/types"
	"github.com/hyperengineering/tally/internal/validation"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// pinger is implemented by stores that can report their own health.
type pinger interface {
	Ping(ctx context.Context) error
}

// Handler implements the API handlers
type Handler struct {
	records  store.Store
	accounts store.Accounts
	version  string
	isDemo   func(email string) bool
	now      func() time.Time
}

// NewHandler creates a Handler. records serves every non-demo account;
// isDemo may be nil when demo mode is disabled.
func NewHandler(records store.Store, accounts store.Accounts, version string, isDemo func(email string) bool) *Handler {
	return &Handler{
		records:  records,
		accounts: accounts,
		version:  version,
		isDemo:   isDemo,
		now:      time.Now,
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.records.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			slog.Error("health check failed", "component", "api", "action", "health", "error", err)
			WriteProblem(w, r, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
	}

	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:  "healthy",
		Version: h.version,
	})
}

// scope is the per-request state every authenticated handler works against.
type scope struct {
	store   store.Store
	account *types.Account
	today   civil.Date
	// clock is the account's current day by the server clock. It bounds
	// writes even when today was overridden by the caller.
	clock civil.Date
}

// latestWritable is the last day an entry may be recorded for.
func (sc scope) latestWritable() civil.Date {
	if sc.clock.Before(sc.today) {
		return sc.clock
	}
	return sc.today
}

func requestScope(r *http.Request) scope {
	today, ok := TodayFromContext(r.Context())
	if !ok {
		panic("api: today not in context; TodayMiddleware not installed")
	}
	clock, ok := ClockTodayFromContext(r.Context())
	if !ok {
		clock = today
	}
	return scope{
		store:   MustStoreFromContext(r.Context()),
		account: MustAccountFromContext(r.Context()),
		today:   today,
		clock:   clock,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// decodeJSON decodes the request body into dst and writes a 400 problem on
// failure. An empty body leaves dst untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if allowEmpty {
				return true
			}
			WriteProblem(w, r, http.StatusBadRequest, "Request body is required")
			return false
		}
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return false
	}
	return true
}

// storeFailure logs err with its component/action and writes the mapped
// problem response. Expected domain errors are not logged as errors.
func storeFailure(w http.ResponseWriter, r *http.Request, action string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrReadOnly), errors.Is(err, store.ErrDuplicate):
		slog.Debug("store rejected request", "component", "store", "action", action, "error", err)
	default:
		slog.Error("store operation failed", "component", "store", "action", action, "error", err)
	}
	MapStoreError(w, r, err)
}

// dateParam parses a YYYY-MM-DD path or query value, writing a 422 problem
// when it is malformed.
func dateParam(w http.ResponseWriter, r *http.Request, field, value string) (civil.Date, bool) {
	d, verr := validation.ParseDate(field, value)
	if verr != nil {
		WriteProblemWithErrors(w, r, "Invalid date", []validation.ValidationError{*verr})
		return civil.Date{}, false
	}
	return d, true
}
