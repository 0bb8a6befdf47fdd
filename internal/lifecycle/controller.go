package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/Iron-Ham/chalbox/internal/container"
	"github.com/Iron-Ham/chalbox/internal/errors"
	"github.com/Iron-Ham/chalbox/internal/logging"
)

// Backend performs one container operation. *container.Client implements it.
type Backend interface {
	Do(ctx context.Context, op container.Operation, challengeID int) (container.Result, error)
}

// Ticket identifies an operation started with Begin. It must be handed back
// to Complete exactly once.
type Ticket struct {
	Op          container.Operation
	ChallengeID int
	seq         uint64
}

// Controller owns the UIState of one challenge panel. It is not safe for
// concurrent use; drive it from a single goroutine (the TUI update loop or a
// CLI command) and run backend calls elsewhere.
type Controller struct {
	backend    Backend
	renderer   Renderer
	logger     *logging.Logger
	now        func() time.Time
	guardStale bool

	state    UIState
	seq      uint64
	inFlight *Ticket
}

// Option configures a Controller.
type Option func(*Controller)

// WithRenderer sets the renderer notified after every state change.
func WithRenderer(r Renderer) Option {
	return func(c *Controller) {
		if r != nil {
			c.renderer = r
		}
	}
}

// WithLogger sets the logger for operation outcomes.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock replaces time.Now for expiry calculations.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithStaleGuard controls whether replies for a ticket issued before the
// last SwitchChallenge are dropped (true, the default) or rendered anyway.
func WithStaleGuard(enabled bool) Option {
	return func(c *Controller) {
		c.guardStale = enabled
	}
}

// NewController creates a controller for challengeID. No call is made until
// an operation is triggered.
func NewController(backend Backend, challengeID int, opts ...Option) *Controller {
	c := &Controller{
		backend:    backend,
		renderer:   nopRenderer{},
		logger:     logging.NopLogger(),
		now:        time.Now,
		guardStale: true,
		state:      UIState{ChallengeID: challengeID, Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() UIState {
	s := c.state
	if s.Alert.Connection != nil {
		d := *s.Alert.Connection
		s.Alert.Connection = &d
	}
	return s
}

// ChallengeID returns the active challenge.
func (c *Controller) ChallengeID() int {
	return c.state.ChallengeID
}

// Backend returns the backend tickets should be invoked against.
func (c *Controller) Backend() Backend {
	return c.backend
}

// Busy reports whether an operation is in flight.
func (c *Controller) Busy() bool {
	return c.state.Loading
}

// Begin starts op: controls are disabled and the alert shows a spinner.
// It fails with *errors.BusyError while another operation is in flight.
func (c *Controller) Begin(op container.Operation) (Ticket, error) {
	if !op.Valid() {
		return Ticket{}, errors.NewValidationError(fmt.Sprintf("unknown operation %q", op)).
			WithField("operation").
			WithCause(errors.ErrUnknownOperation)
	}
	if c.state.Loading {
		inFlight := ""
		if c.inFlight != nil {
			inFlight = string(c.inFlight.Op)
		}
		c.logger.Debug("operation rejected while busy", "requested", string(op), "in_flight", inFlight)
		return Ticket{}, errors.NewBusyError(string(op), inFlight)
	}
	if c.state.ChallengeID <= 0 {
		return Ticket{}, errors.NewValidationError("challenge id must be positive").
			WithField("chal_id").
			WithValue(c.state.ChallengeID).
			WithCause(errors.ErrInvalidChallenge)
	}

	c.seq++
	t := Ticket{Op: op, ChallengeID: c.state.ChallengeID, seq: c.seq}
	c.inFlight = &t

	c.state.Loading = true
	c.state.Phase = PhaseLoading
	c.state.Alert = Alert{Kind: AlertSpinner}
	c.render()

	c.logger.WithChallenge(t.ChallengeID).WithOperation(string(op)).Debug("operation started")
	return t, nil
}

// Complete applies the outcome of t. callErr is any failure of the call
// itself, and res is ignored when callErr is set. It reports whether the outcome
// was applied: replies for a ticket issued before the last SwitchChallenge
// are dropped when the stale guard is on.
//
// The controls are always re-enabled as the final step, including when
// applying the outcome panics.
func (c *Controller) Complete(t Ticket, res container.Result, callErr error) (applied bool) {
	log := c.logger.WithChallenge(t.ChallengeID).WithOperation(string(t.Op))

	if t.seq != c.seq {
		if c.guardStale {
			log.Debug("dropping stale reply", "active_challenge", c.state.ChallengeID)
			return false
		}
		log.Warn("rendering reply for a superseded operation", "active_challenge", c.state.ChallengeID)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while applying reply", "panic", fmt.Sprint(r))
			c.state.Phase = PhaseError
			c.state.Alert = Alert{Kind: AlertDanger, Text: t.Op.FailureText()}
		}
		c.inFlight = nil
		c.state.Loading = false
		c.ensureVisibleControls()
		c.render()
	}()

	if callErr != nil {
		logAt(log, errors.GetSeverity(callErr), "container call failed",
			"error", callErr.Error(),
			"retryable", errors.IsRetryable(callErr),
		)
		c.applyTransportFailure(t.Op)
		return true
	}

	c.applyResult(t.Op, res, log)
	return true
}

// Run performs op synchronously: Begin, the backend call, then Complete.
// A BusyError from Begin is returned with the unchanged state.
func (c *Controller) Run(ctx context.Context, op container.Operation) (UIState, error) {
	t, err := c.Begin(op)
	if err != nil {
		return c.State(), err
	}
	res, callErr := Invoke(ctx, c.backend, t)
	c.Complete(t, res, callErr)
	return c.State(), nil
}

// Invoke calls the backend for t, converting a panic into a transport error.
// It is safe to call from any goroutine.
func Invoke(ctx context.Context, backend Backend, t Ticket) (res container.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = container.Result{}
			err = errors.NewTransportError(string(t.Op), t.ChallengeID, fmt.Errorf("panic: %v", r)).
				WithMessage("backend panicked")
		}
	}()
	if backend == nil {
		return container.Result{}, errors.NewTransportError(string(t.Op), t.ChallengeID, errors.New("no backend configured"))
	}
	return backend.Do(ctx, t.Op, t.ChallengeID)
}

// SwitchChallenge makes challengeID the active challenge and resets the
// panel. Any in-flight ticket becomes stale and the controls are enabled.
func (c *Controller) SwitchChallenge(challengeID int) {
	c.seq++
	c.inFlight = nil
	c.state = UIState{ChallengeID: challengeID, Phase: PhaseIdle}
	c.logger.WithChallenge(challengeID).Info("switched challenge")
	c.render()
}

func (c *Controller) applyTransportFailure(op container.Operation) {
	c.state.Phase = PhaseError
	c.state.Alert = Alert{Kind: AlertDanger, Text: op.FailureText()}
}

// ensureVisibleControls keeps one control group visible once the panel is
// idle. Outcomes that leave visibility unchanged can only hit this on a
// panel that had never shown controls: a running container gets the update
// group, anything else gets create.
func (c *Controller) ensureVisibleControls() {
	if c.state.Loading || c.state.CreateVisible || c.state.UpdateVisible {
		return
	}
	if c.state.Phase == PhaseRunning {
		c.state.UpdateVisible = true
		return
	}
	c.state.CreateVisible = true
}

func logAt(log *logging.Logger, sev errors.Severity, msg string, args ...any) {
	switch sev {
	case errors.SeverityDebug:
		log.Debug(msg, args...)
	case errors.SeverityInfo:
		log.Info(msg, args...)
	case errors.SeverityWarning:
		log.Warn(msg, args...)
	default:
		log.Error(msg, args...)
	}
}

func (c *Controller) applyResult(op container.Operation, res container.Result, log *logging.Logger) {
	switch res.Kind {
	case container.KindNotStarted:
		c.state.Phase = PhaseNotStarted
		c.state.Alert = Alert{Kind: AlertText, Text: res.Status}
		c.state.CreateVisible = true
		c.state.UpdateVisible = false

	case container.KindRunning:
		d := Describe(res.Connection, c.now())
		c.state.Phase = PhaseRunning
		c.state.Alert = Alert{Kind: AlertConnection, Connection: &d}
		if op == container.OpView || op == container.OpRequest {
			c.state.CreateVisible = false
			c.state.UpdateVisible = true
		}
		log.Info("container running", "target", d.Target(), "minutes", d.Minutes)

	case container.KindStopped:
		c.state.Phase = PhaseNotStarted
		c.state.Alert = Alert{Kind: AlertText, Text: TerminatedText}
		c.state.CreateVisible = true
		c.state.UpdateVisible = false
		log.Info("container stopped")

	case container.KindFailed:
		c.state.Phase = PhaseError
		c.state.Alert = Alert{Kind: AlertDanger, Text: res.Text()}
		switch op {
		case container.OpView:
			c.state.CreateVisible = false
			c.state.UpdateVisible = true
		case container.OpRequest:
			c.state.CreateVisible = true
			c.state.UpdateVisible = false
		}
		if res.Failure != nil {
			log.Warn("backend reported failure", "error", res.Failure.Error())
		}

	default:
		log.Error("reply has no outcome", "kind", res.Kind.String())
		c.applyTransportFailure(op)
	}
}

func (c *Controller) render() {
	c.renderer.Render(c.State())
}
