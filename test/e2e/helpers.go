package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperengineering/tally/internal/api"
	"github.com/hyperengineering/tally/internal/store"
	"github.com/hyperengineering/tally/internal/types"
)

const demoEmail = "demo@example.com"

// testEnv is an in-process server backed by a real SQLite file.
type testEnv struct {
	server *httptest.Server
	db     *store.SQLiteStore
	dbPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvAt(t, filepath.Join(t.TempDir(), "tally.db"))
}

// newTestEnvAt opens dbPath, so a second env on the same path sees the
// first one's data.
func newTestEnvAt(t *testing.T, dbPath string) *testEnv {
	t.Helper()

	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	isDemo := func(email string) bool { return strings.EqualFold(email, demoEmail) }
	handler := api.NewHandler(db, db, "e2e", isDemo)
	server := httptest.NewServer(api.NewRouter(handler))

	env := &testEnv{server: server, db: db, dbPath: dbPath}
	t.Cleanup(env.close)
	return env
}

func (e *testEnv) close() {
	e.server.Close()
	e.db.Close()
}

// createAccount registers an account and returns a client that
// authenticates as it, pinned to today.
func (e *testEnv) createAccount(t *testing.T, email, today string) *client {
	t.Helper()
	account, err := e.db.CreateAccount(context.Background(), email, "UTC")
	if err != nil {
		t.Fatalf("CreateAccount(%s) error = %v", email, err)
	}
	return &client{baseURL: e.server.URL, token: account.Token, today: today}
}

// client issues API requests for one account.
type client struct {
	baseURL string
	token   string
	today   string
}

// do sends a request and returns status and body. The client's today is
// appended as a query parameter when set.
func (c *client) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	url := c.baseURL + "/api/v1" + path
	if c.today != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		url += sep + "today=" + c.today
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

// mustDo is do that fails the test unless the status matches.
func (c *client) mustDo(t *testing.T, want int, method, path string, body any) []byte {
	t.Helper()
	status, data := c.do(t, method, path, body)
	if status != want {
		t.Fatalf("%s %s: status %d, want %d: %s", method, path, status, want, data)
	}
	return data
}

func decodeAs[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %T from %s: %v", v, data, err)
	}
	return v
}

func (c *client) createTrackable(t *testing.T, name string) types.Trackable {
	t.Helper()
	data := c.mustDo(t, http.StatusCreated, http.MethodPost, "/trackables",
		types.CreateTrackableRequest{Name: name})
	return decodeAs[types.Trackable](t, data)
}

func (c *client) checkIn(t *testing.T, trackableID, date string, completed bool) {
	t.Helper()
	c.mustDo(t, http.StatusOK, http.MethodPut,
		fmt.Sprintf("/trackables/%s/entries/%s", trackableID, date),
		types.CheckInRequest{Completed: &completed})
}
