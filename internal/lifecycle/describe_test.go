package lifecycle

import (
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/chalbox/internal/container"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name        string
		conn        container.Connection
		wantCommand string
		wantURL     string
	}{
		{
			name:        "tcp renders a netcat command",
			conn:        container.Connection{Connect: "tcp", Hostname: "chal.example", Port: 31337},
			wantCommand: "nc chal.example 31337",
		},
		{
			name:        "tcp quotes unsafe hosts",
			conn:        container.Connection{Connect: "tcp", Hostname: "evil;rm", Port: 1},
			wantCommand: "nc 'evil;rm' 1",
		},
		{
			name:        "tcp quotes an empty host",
			conn:        container.Connection{Connect: "tcp", Hostname: "", Port: 31337},
			wantCommand: "nc '' 31337",
		},
		{
			name:    "http renders a link",
			conn:    container.Connection{Connect: "http", Hostname: "chal.example", Port: 8080},
			wantURL: "http://chal.example:8080",
		},
		{
			name:    "unknown connect types render a link",
			conn:    container.Connection{Connect: "web", Hostname: "10.1.2.3", Port: 80},
			wantURL: "http://10.1.2.3:80",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Describe(tt.conn, testNow)
			if d.Command != tt.wantCommand {
				t.Errorf("Command = %q, want %q", d.Command, tt.wantCommand)
			}
			if d.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", d.URL, tt.wantURL)
			}
			if tt.wantCommand != "" {
				if d.NewWindow || strings.Contains(d.Target(), "http://") {
					t.Error("tcp descriptor must not carry a link")
				}
			} else if !d.NewWindow {
				t.Error("links must open in a new window")
			}
		})
	}
}

func TestDescribe_Expiry(t *testing.T) {
	tests := []struct {
		offset time.Duration
		want   string
	}{
		{90 * time.Second, "Expires in 2 minutes."},
		{60 * time.Second, "Expires in 1 minute."},
		{time.Hour, "Expires in 60 minutes."},
		{-5 * time.Second, "Expires in 0 minutes."},
		{-30 * time.Second, "Expires in 0 minutes."},
		{-90 * time.Second, "Expires in -1 minute."},
		{-150 * time.Second, "Expires in -2 minutes."},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			conn := container.Connection{Connect: "tcp", Hostname: "h", Port: 1, ExpiresAt: testNow.Add(tt.offset)}
			if got := Describe(conn, testNow).Expiry; got != tt.want {
				t.Errorf("Expiry = %q, want %q", got, tt.want)
			}
		})
	}
}
