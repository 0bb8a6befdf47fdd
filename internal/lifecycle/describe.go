package lifecycle

import (
	"fmt"
	"strconv"
	"time"

	"al.essio.dev/pkg/shellescape"

	"github.com/Iron-Ham/chalbox/internal/container"
)

// Describe renders a running container's connection relative to now.
func Describe(conn container.Connection, now time.Time) Descriptor {
	minutes := container.MinutesRemaining(conn.ExpiresAt, now)
	d := Descriptor{
		Minutes: minutes,
		Expiry:  FormatExpiry(minutes),
	}
	if conn.IsTCP() {
		d.Command = "nc " + shellescape.Quote(conn.Hostname) + " " + strconv.Itoa(conn.Port)
		return d
	}
	d.URL = "http://" + conn.Address()
	d.NewWindow = true
	return d
}

// FormatExpiry returns the expiry sentence for a minute count.
func FormatExpiry(minutes int) string {
	unit := "minutes"
	if minutes == 1 || minutes == -1 {
		unit = "minute"
	}
	return fmt.Sprintf("Expires in %d %s.", minutes, unit)
}
