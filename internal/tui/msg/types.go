// Package msg defines the Bubble Tea messages and commands of the chalbox TUI.
//
// Commands do their blocking work off the update loop and report back with
// one of the message types below.
package msg

import (
	"github.com/Iron-Ham/chalbox/internal/container"
	"github.com/Iron-Ham/chalbox/internal/lifecycle"
)

// ResultMsg carries the outcome of a backend call started with a ticket.
type ResultMsg struct {
	Ticket lifecycle.Ticket
	Result container.Result
	Err    error
}

// CopiedMsg reports a clipboard write.
type CopiedMsg struct {
	Text string
	Err  error
}

// OpenedMsg reports an attempt to open a URL in the browser.
type OpenedMsg struct {
	URL string
	Err error
}
