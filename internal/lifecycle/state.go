// Package lifecycle drives a single challenge's container through the
// view/request/renew/stop operations and reduces every outcome into a
// UIState that a renderer can draw.
//
// A Controller serializes operations: while one is in flight all controls
// are disabled and further triggers are rejected with *errors.BusyError.
// Whatever the outcome, completion re-enables the controls as its last step.
package lifecycle

import (
	"fmt"

	"github.com/Iron-Ham/chalbox/internal/container"
)

// Phase is the coarse state of the challenge panel.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseLoading    Phase = "loading"
	PhaseNotStarted Phase = "not_started"
	PhaseRunning    Phase = "running"
	PhaseError      Phase = "error"
)

// AlertKind selects how the alert area is drawn.
type AlertKind string

const (
	AlertNone       AlertKind = ""
	AlertSpinner    AlertKind = "spinner"
	AlertText       AlertKind = "text"
	AlertConnection AlertKind = "connection"
	AlertDanger     AlertKind = "danger"
)

// TerminatedText is shown after a successful stop.
const TerminatedText = "Challenge Terminated."

// Alert is the content of the alert area.
type Alert struct {
	Kind AlertKind `json:"kind"`
	Text string    `json:"text,omitempty"`
	// Connection is set when Kind is AlertConnection.
	Connection *Descriptor `json:"connection,omitempty"`
}

// Danger reports whether the alert uses the danger style.
func (a Alert) Danger() bool {
	return a.Kind == AlertDanger
}

// Descriptor is the rendered form of a running container's connection.
type Descriptor struct {
	Minutes int    `json:"minutes"`
	Expiry  string `json:"expiry"`
	// Command is set for tcp containers, e.g. "nc chal.example 31337".
	Command string `json:"command,omitempty"`
	// URL is set for every other connection type, e.g. "http://chal.example:8080".
	URL string `json:"url,omitempty"`
	// NewWindow asks the renderer to open URL outside the current view.
	NewWindow bool `json:"new_window,omitempty"`
}

// Target returns the command or URL, whichever is set.
func (d Descriptor) Target() string {
	if d.Command != "" {
		return d.Command
	}
	return d.URL
}

// UIState is everything a renderer needs to draw the challenge panel.
type UIState struct {
	ChallengeID int   `json:"chal_id"`
	Phase       Phase `json:"phase"`
	// Loading disables every control while an operation is in flight.
	Loading bool `json:"loading"`
	// CreateVisible shows the request control.
	CreateVisible bool `json:"create_visible"`
	// UpdateVisible shows the extend and terminate controls.
	UpdateVisible bool  `json:"update_visible"`
	Alert         Alert `json:"alert"`
}

// ControlsEnabled reports whether user controls accept input.
func (s UIState) ControlsEnabled() bool {
	return !s.Loading
}

// CanTrigger reports whether op's control is both visible and enabled.
// Refresh (view) is always available when not loading.
func (s UIState) CanTrigger(op container.Operation) bool {
	if s.Loading {
		return false
	}
	switch op {
	case container.OpView:
		return true
	case container.OpRequest:
		return s.CreateVisible
	case container.OpRenew, container.OpStop:
		return s.UpdateVisible
	}
	return false
}

func (s UIState) String() string {
	return fmt.Sprintf("challenge=%d phase=%s loading=%t create=%t update=%t alert=%s",
		s.ChallengeID, s.Phase, s.Loading, s.CreateVisible, s.UpdateVisible, s.Alert.Kind)
}

// Renderer is the single boundary through which state reaches the screen.
type Renderer interface {
	Render(UIState)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(UIState)

// Render calls f(s).
func (f RendererFunc) Render(s UIState) {
	f(s)
}

type nopRenderer struct{}

func (nopRenderer) Render(UIState) {}
