package api

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/hyperengineering/tally/internal/analytics"
	"github.com/hyperengineering/tally/internal/store"
	"github.com/hyperengineering/tally/internal/validation"
)

// extractBearerToken extracts the token from Authorization header.
// Returns empty string for missing/malformed headers.
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	// Must start with "Bearer " (case-sensitive per RFC 6750)
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}

	return strings.TrimSpace(auth[len(prefix):])
}

// AuthMiddleware resolves the Bearer token to an account and attaches it to
// the request context. Returns 401 RFC 7807 Problem Details on failure.
// Tokens are never logged.
func AuthMiddleware(accounts store.Accounts) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				slog.Warn("auth failure",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_ip", r.RemoteAddr,
				)
				WriteProblem(w, r, http.StatusUnauthorized, "Missing or invalid API token")
				return
			}

			account, err := accounts.GetAccountByToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, store.ErrUnauthorized) {
					slog.Warn("auth failure",
						"path", r.URL.Path,
						"method", r.Method,
						"remote_ip", r.RemoteAddr,
					)
					WriteProblem(w, r, http.StatusUnauthorized, "Missing or invalid API token")
					return
				}
				slog.Error("account lookup failed", "component", "api", "action", "authenticate", "error", err)
				WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
		})
	}
}

// TodayMiddleware fixes the calendar date used by every computation in the
// request: the "today" query parameter when present, otherwise now() in the
// account's timezone. The clock-derived day is attached as well so writes
// can be bounded by it regardless of the parameter. Must run after
// AuthMiddleware.
func TodayMiddleware(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := MustAccountFromContext(r.Context())

			loc, err := time.LoadLocation(account.Timezone)
			if err != nil {
				slog.Warn("unknown account timezone, using UTC",
					"component", "api",
					"account_id", account.ID,
					"timezone", account.Timezone,
				)
				loc = time.UTC
			}
			clock := analytics.TodayIn(now(), loc)
			ctx := WithClockToday(r.Context(), clock)

			today := clock
			if v := r.URL.Query().Get("today"); v != "" {
				d, verr := validation.ParseDate("today", v)
				if verr != nil {
					WriteProblemWithErrors(w, r, "Invalid today parameter", []validation.ValidationError{*verr})
					return
				}
				today = d
			}
			next.ServeHTTP(w, r.WithContext(WithToday(ctx, today)))
		})
	}
}

// StoreMiddleware attaches the record store serving this request. The demo
// account gets a read-only fixture built for the request's date; everyone
// else gets records. Must run after TodayMiddleware.
func StoreMiddleware(records store.Store, isDemo func(email string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := MustAccountFromContext(r.Context())

			var s store.Store = records
			if isDemo != nil && isDemo(account.Email) {
				today, _ := TodayFromContext(r.Context())
				s = store.NewDemoStore(account.ID, today)
			}
			next.ServeHTTP(w, r.WithContext(WithStore(r.Context(), s)))
		})
	}
}

// LoggingMiddleware logs HTTP requests. 5xx responses log at error level
// and 4xx at warn.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		slog.Log(r.Context(), logLevelForStatus(wrapped.statusCode), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

func logLevelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RecoveryMiddleware catches panics and returns 500 Problem Details.
// Panic details are logged but never exposed to the client.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				slog.Error("panic recovered",
					"error", recovered,
					"stack", string(debug.Stack()),
					"path", r.URL.Path,
					"method", r.Method,
				)
				WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
