package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/hyperengineering/tally/internal/store"
)

// mockHandler is a simple handler that records if it was called
func mockHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}), &called
}

// captureLogs routes slog output to a buffer for the rest of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(old) })
	return &buf
}

// --- AuthMiddleware Tests ---

func TestAuthMiddleware_ValidToken(t *testing.T) {
	var got string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = MustAccountFromContext(r.Context()).ID
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trackables", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	AuthMiddleware(&mockAccounts{})(handler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got != testAccount.ID {
		t.Errorf("account in context = %q, want %q", got, testAccount.ID)
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"unknown token", "Bearer wrong-token"},
		{"no bearer prefix", testToken},
		{"empty token", "Bearer "},
		{"whitespace token", "Bearer    "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, called := mockHandler()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/trackables", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			AuthMiddleware(&mockAccounts{})(handler).ServeHTTP(w, req)

			if *called {
				t.Error("handler should not be called")
			}
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestAuthMiddleware_ResponseFormat_RFC7807(t *testing.T) {
	handler, _ := mockHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/trackables", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	w := httptest.NewRecorder()

	AuthMiddleware(&mockAccounts{})(handler).ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %v, want application/problem+json", ct)
	}
	var p Problem
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal response as RFC 7807: %v", err)
	}
	if p.Type != "https://tally.dev/errors/unauthorized" {
		t.Errorf("type = %v, want https://tally.dev/errors/unauthorized", p.Type)
	}
	if p.Instance != "/api/v1/trackables" {
		t.Errorf("instance = %v, want /api/v1/trackables", p.Instance)
	}
}

func TestAuthMiddleware_LookupFailureIs500(t *testing.T) {
	captureLogs(t)
	handler, called := mockHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/trackables", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	AuthMiddleware(&mockAccounts{err: errors.New("database is locked")})(handler).ServeHTTP(w, req)

	if *called {
		t.Error("handler should not be called")
	}
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if strings.Contains(w.Body.String(), "locked") {
		t.Error("response leaks internal error")
	}
}

func TestAuthMiddleware_TokenNotLogged(t *testing.T) {
	logs := captureLogs(t)
	handler, _ := mockHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/trackables", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")

	AuthMiddleware(&mockAccounts{})(LoggingMiddleware(handler)).ServeHTTP(httptest.NewRecorder(), req)

	if strings.Contains(logs.String(), "not-a-real-token") {
		t.Error("log output contains the bearer token - security violation!")
	}
	if !strings.Contains(logs.String(), "auth failure") {
		t.Error("expected 'auth failure' in log output")
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{"valid token", "Bearer abc123", "abc123"},
		{"missing header", "", ""},
		{"no bearer prefix", "abc123", ""},
		{"empty after bearer", "Bearer ", ""},
		{"whitespace after bearer", "Bearer    ", ""},
		{"lowercase bearer", "bearer abc123", ""},
		{"basic auth", "Basic abc123", ""},
		{"token with spaces trimmed", "Bearer  abc123 ", "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			got := extractBearerToken(req)
			if got != tt.expected {
				t.Errorf("extractBearerToken() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// --- TodayMiddleware Tests ---

func runToday(t *testing.T, tz, query string, now time.Time) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var got string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, ok := TodayFromContext(r.Context())
		if !ok {
			t.Fatal("today missing from context")
		}
		got = d.String()
		w.WriteHeader(http.StatusOK)
	})

	account := testAccount
	account.Timezone = tz
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard"+query, nil)
	req = req.WithContext(WithAccount(req.Context(), &account))
	w := httptest.NewRecorder()

	TodayMiddleware(func() time.Time { return now })(handler).ServeHTTP(w, req)
	return w, got
}

func TestTodayMiddleware(t *testing.T) {
	// 02:30 UTC on June 12 is still June 11 in New York.
	now := time.Date(2024, time.June, 12, 2, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		tz    string
		query string
		want  string
	}{
		{"utc account", "UTC", "", "2024-06-12"},
		{"account timezone applied", "America/New_York", "", "2024-06-11"},
		{"east of utc", "Asia/Tokyo", "", "2024-06-12"},
		{"unknown timezone falls back to utc", "Nowhere/Special", "", "2024-06-12"},
		{"explicit parameter wins", "America/New_York", "?today=2023-12-31", "2023-12-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureLogs(t)
			w, got := runToday(t, tt.tz, tt.query, now)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if got != tt.want {
				t.Errorf("today = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTodayMiddleware_InvalidParameter(t *testing.T) {
	w, _ := runToday(t, "UTC", "?today=2024-02-30", time.Now())

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var p ProblemWithErrors
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if len(p.Errors) != 1 || p.Errors[0].Field != "today" {
		t.Errorf("errors = %+v, want one error on today", p.Errors)
	}
}

func TestTodayMiddleware_AttachesClockDayWithOverride(t *testing.T) {
	now := time.Date(2024, time.June, 12, 2, 30, 0, 0, time.UTC)

	var today, clock civil.Date
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		today, _ = TodayFromContext(r.Context())
		clock, _ = ClockTodayFromContext(r.Context())
	})

	account := testAccount
	account.Timezone = "America/New_York"
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard?today=2099-01-01", nil)
	req = req.WithContext(WithAccount(req.Context(), &account))
	TodayMiddleware(func() time.Time { return now })(handler).ServeHTTP(httptest.NewRecorder(), req)

	if today != date(2099, time.January, 1) {
		t.Errorf("today = %s, want 2099-01-01", today)
	}
	if clock != date(2024, time.June, 11) {
		t.Errorf("clock = %s, want 2024-06-11", clock)
	}
}

// --- StoreMiddleware Tests ---

func TestStoreMiddleware(t *testing.T) {
	records := &mockStore{}
	isDemo := func(email string) bool { return email == "demo@example.com" }

	tests := []struct {
		name     string
		email    string
		wantDemo bool
	}{
		{"regular account gets records", "user@example.com", false},
		{"demo account gets fixture", "demo@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got any
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = MustStoreFromContext(r.Context())
			})

			account := testAccount
			account.Email = tt.email
			req := httptest.NewRequest(http.MethodGet, "/api/v1/trackables", nil)
			ctx := WithAccount(req.Context(), &account)
			ctx = WithToday(ctx, fixedToday)

			StoreMiddleware(records, isDemo)(handler).ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))

			_, isDemoStore := got.(*store.DemoStore)
			if isDemoStore != tt.wantDemo {
				t.Errorf("store = %T, want demo %v", got, tt.wantDemo)
			}
			if !tt.wantDemo && got != records {
				t.Error("regular account did not get the records store")
			}
		})
	}
}

func TestStoreMiddleware_NilDemoCheck(t *testing.T) {
	records := &mockStore{}
	var got any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = MustStoreFromContext(r.Context())
	})

	account := testAccount
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := WithToday(WithAccount(req.Context(), &account), fixedToday)

	StoreMiddleware(records, nil)(handler).ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))

	if got != records {
		t.Errorf("store = %T, want records", got)
	}
}

// --- LoggingMiddleware Tests ---

func TestLogLevelForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   slog.Level
	}{
		{200, slog.LevelInfo},
		{204, slog.LevelInfo},
		{404, slog.LevelWarn},
		{422, slog.LevelWarn},
		{500, slog.LevelError},
		{503, slog.LevelError},
	}

	for _, tt := range tests {
		if got := logLevelForStatus(tt.status); got != tt.want {
			t.Errorf("logLevelForStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestLoggingMiddleware_Fields(t *testing.T) {
	logs := captureLogs(t)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trackables/x", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	LoggingMiddleware(inner).ServeHTTP(httptest.NewRecorder(), req)

	out := logs.String()
	for _, want := range []string{`"msg":"http request"`, `"status":404`, `"level":"WARN"`, `"duration_ms"`, `"path":"/api/v1/trackables/x"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
	if strings.Contains(out, testToken) {
		t.Error("log output contains the bearer token - security violation!")
	}
}

// --- RecoveryMiddleware Tests ---

func TestRecoveryMiddleware_NoPanic(t *testing.T) {
	handler, _ := mockHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/trackables", nil)
	w := httptest.NewRecorder()

	RecoveryMiddleware(handler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "OK" {
		t.Errorf("body = %q, want %q", w.Body.String(), "OK")
	}
}

func TestRecoveryMiddleware_PanicNoLeak(t *testing.T) {
	logs := captureLogs(t)

	secretMessage := "super-secret-database-password-12345"
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(secretMessage)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trackables", nil)
	w := httptest.NewRecorder()

	RecoveryMiddleware(panicHandler).ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if strings.Contains(w.Body.String(), secretMessage) {
		t.Error("response body contains secret panic message - security violation!")
	}
	var p Problem
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if p.Type != "https://tally.dev/errors/internal-error" {
		t.Errorf("type = %v, want https://tally.dev/errors/internal-error", p.Type)
	}

	// But logs SHOULD contain the secret (for debugging)
	if !strings.Contains(logs.String(), secretMessage) {
		t.Error("expected secret in logs for debugging purposes")
	}
}
