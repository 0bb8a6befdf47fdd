package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/chalbox/internal/errors"
	"github.com/Iron-Ham/chalbox/internal/lifecycle"
	"github.com/Iron-Ham/chalbox/internal/testutil"
)

// executeCommand runs a fresh command tree with args and returns captured output.
func executeCommand(t *testing.T, args ...string) (output string, err error) {
	t.Helper()

	viper.Reset()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

func runningReply(host string, port int) map[string]any {
	return map[string]any{
		"status":   "created",
		"connect":  "tcp",
		"hostname": host,
		"port":     port,
		"expires":  time.Now().Add(time.Hour).Unix(),
	}
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	if root.Use != "chalbox" {
		t.Errorf("root.Use = %q, want %q", root.Use, "chalbox")
	}

	expected := []string{"view", "request", "renew", "stop", "watch", "dev", "config"}
	cmdMap := make(map[string]*cobra.Command)
	for _, c := range root.Commands() {
		cmdMap[c.Name()] = c
	}
	for _, name := range expected {
		if cmdMap[name] == nil {
			t.Errorf("expected subcommand %q not found", name)
		}
	}

	if f := cmdMap["view"].Flags().Lookup("json"); f == nil {
		t.Error("view has no --json flag")
	}
}

func TestViewPrintsPlainPanel(t *testing.T) {
	backend := testutil.NewBackend(t).
		JSON("/containers/api/view_info", map[string]any{"status": "Challenge not started"})

	out, err := executeCommand(t, "view", "7", "--backend", backend.URL)
	if err != nil {
		t.Fatalf("view: %v\n%s", err, out)
	}

	want := "Challenge not started\navailable: create\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}

	calls := backend.Calls()
	if len(calls) != 1 || calls[0].ChallengeID != 7 {
		t.Errorf("calls = %+v", calls)
	}
}

func TestRequestPrintsConnection(t *testing.T) {
	backend := testutil.NewBackend(t).
		JSON("/containers/api/request", runningReply("chal.example", 31337))

	out, err := executeCommand(t, "request", "3", "--backend", backend.URL)
	if err != nil {
		t.Fatalf("request: %v\n%s", err, out)
	}

	for _, want := range []string{"nc chal.example 31337", "Expires in 60 minutes.", "available: extend, terminate"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFailedOperationExitsNonZero(t *testing.T) {
	tests := []struct {
		name    string
		reply   testutil.Reply
		wantOut string
	}{
		{
			name:    "business error",
			reply:   testutil.Reply{Status: http.StatusBadRequest, JSON: map[string]any{"error": "No container found"}},
			wantOut: "error: No container found",
		},
		{
			name:    "transport error",
			reply:   testutil.Reply{Status: http.StatusBadGateway, Body: "<html>bad gateway</html>"},
			wantOut: "error: Error stopping container info.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testutil.NewBackend(t).Reply("/containers/api/stop", tt.reply)

			out, err := executeCommand(t, "stop", "3", "--backend", backend.URL)
			if !errors.Is(err, ErrOperationFailed) {
				t.Errorf("err = %v, want ErrOperationFailed", err)
			}
			if !strings.Contains(out, tt.wantOut) {
				t.Errorf("output missing %q:\n%s", tt.wantOut, out)
			}
		})
	}
}

func TestJSONOutput(t *testing.T) {
	backend := testutil.NewBackend(t).
		JSON("/containers/api/view_info", runningReply("10.0.0.5", 4000))

	out, err := executeCommand(t, "view", "9", "--json", "--backend", backend.URL)
	if err != nil {
		t.Fatalf("view --json: %v\n%s", err, out)
	}

	var s lifecycle.UIState
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if s.ChallengeID != 9 || s.Phase != lifecycle.PhaseRunning || s.Loading {
		t.Errorf("state = %s", s)
	}
	if s.Alert.Connection == nil || s.Alert.Connection.Command != "nc 10.0.0.5 4000" {
		t.Errorf("alert = %+v", s.Alert)
	}
}

func TestCredentialsFromFlagsAndEnv(t *testing.T) {
	backend := testutil.NewBackend(t).
		JSON("/containers/api/view_info", map[string]any{"status": "Challenge not started"})

	if _, err := executeCommand(t, "view", "1", "--backend", backend.URL, "--csrf-token", "tok", "--session", "sess"); err != nil {
		t.Fatalf("view with flags: %v", err)
	}

	t.Setenv("CHALBOX_BACKEND_CSRF_TOKEN", "env-tok")
	if _, err := executeCommand(t, "view", "1", "--backend", backend.URL); err != nil {
		t.Fatalf("view with env: %v", err)
	}

	calls := backend.Calls()
	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(calls))
	}
	if calls[0].CSRFToken != "tok" || calls[0].Session != "sess" {
		t.Errorf("flag credentials not sent: %+v", calls[0])
	}
	if calls[1].CSRFToken != "env-tok" || calls[1].Session != "" {
		t.Errorf("env credentials not sent: %+v", calls[1])
	}
}

func TestInvalidArguments(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"non-numeric id", []string{"view", "abc"}, errors.ErrInvalidChallenge},
		{"zero id", []string{"renew", "0"}, errors.ErrInvalidChallenge},
		{"negative id", []string{"stop", "--", "-4"}, errors.ErrInvalidChallenge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, tt.args...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestInvalidBackendURL(t *testing.T) {
	_, err := executeCommand(t, "view", "1", "--backend", "ftp://ctf.example")
	if err == nil || !strings.Contains(err.Error(), "backend.url") {
		t.Errorf("err = %v, want a backend.url validation error", err)
	}
}
