//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// tallyServer manages a running Tally server process.
type tallyServer struct {
	cmd     *exec.Cmd
	dataDir string
	address string
	logFile string
	demo    string
}

// startTally launches the Tally binary and waits for it to become healthy.
// Configuration is passed entirely through environment variables.
func startTally(t *testing.T) *tallyServer {
	t.Helper()
	requireTally(t)
	return startTallyIn(t, t.TempDir())
}

func startTallyIn(t *testing.T, dataDir string) *tallyServer {
	t.Helper()

	port := freePort(t)
	s := &tallyServer{
		dataDir: dataDir,
		address: fmt.Sprintf("127.0.0.1:%d", port),
		logFile: filepath.Join(dataDir, fmt.Sprintf("tally-%d.log", port)),
		demo:    demoEmail,
	}

	s.cmd = exec.Command(tallyBin)
	s.cmd.Env = append(s.env(), fmt.Sprintf("TALLY_PORT=%d", port))

	lf, err := os.Create(s.logFile)
	if err != nil {
		t.Fatalf("create log file: %v", err)
	}
	s.cmd.Stdout = lf
	s.cmd.Stderr = lf

	if err := s.cmd.Start(); err != nil {
		lf.Close()
		t.Fatalf("start tally: %v", err)
	}

	t.Cleanup(func() {
		s.stop()
		lf.Close()
	})

	if err := s.waitHealthy(10 * time.Second); err != nil {
		logs, _ := os.ReadFile(s.logFile)
		t.Fatalf("tally not healthy: %v\n%s", err, logs)
	}
	return s
}

// env is the environment shared by the server and CLI invocations.
func (s *tallyServer) env() []string {
	return append(os.Environ(),
		"TALLY_DB_PATH="+filepath.Join(s.dataDir, "tally.db"),
		"TALLY_CONFIG_PATH="+filepath.Join(s.dataDir, "nonexistent.yaml"),
		"TALLY_DEMO_EMAIL="+s.demo,
		"TALLY_LOG_FORMAT=json",
	)
}

func (s *tallyServer) stop() {
	if s.cmd != nil && s.cmd.Process != nil && s.cmd.ProcessState == nil {
		_ = s.cmd.Process.Signal(os.Interrupt)
		_ = s.cmd.Wait()
	}
}

func (s *tallyServer) baseURL() string {
	return fmt.Sprintf("http://%s", s.address)
}

func (s *tallyServer) waitHealthy(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	url := s.baseURL() + "/api/v1/health"

	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("tally not healthy after %s", timeout)
}

// runCLI runs a tally subcommand against the server's database.
func (s *tallyServer) runCLI(t *testing.T, args ...string) string {
	t.Helper()
	cmd := exec.Command(tallyBin, args...)
	cmd.Env = s.env()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("tally %v: %v\nstderr: %s", args, err, stderr.String())
	}
	return stdout.String()
}

// createAccount provisions an account through the CLI and returns a
// client for it.
func (s *tallyServer) createAccount(t *testing.T, email, today string) *client {
	t.Helper()
	out := s.runCLI(t, "account", "create", email, "--json")
	var created struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode account create output %q: %v", out, err)
	}
	return &client{baseURL: s.baseURL(), token: created.Token, today: today}
}

// restartOnSameData stops the server and starts a new one on the same data
// directory. The returned server listens on a new port.
func (s *tallyServer) restartOnSameData(t *testing.T) *tallyServer {
	t.Helper()
	s.stop()
	return startTallyIn(t, s.dataDir)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
