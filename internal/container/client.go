package container

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/chalbox/internal/errors"
	"github.com/Iron-Ham/chalbox/internal/logging"
)

const (
	// csrfHeader carries the platform's anti-forgery token.
	csrfHeader = "CSRF-Token"

	// requestIDHeader correlates a call with its log lines.
	requestIDHeader = "X-Request-ID"

	// sessionCookieName is the platform session cookie.
	sessionCookieName = "session"

	// maxReplyBytes bounds how much of a reply body is read.
	maxReplyBytes = 1 << 20
)

// TokenSource supplies the CSRF token for each call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token returns the token, or errors.ErrNoCSRFToken when it is empty.
func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", errors.ErrNoCSRFToken
	}
	return string(s), nil
}

// Client calls the container API of a single platform.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	tokens     TokenSource
	session    string
	logger     *logging.Logger
	newID      func() string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the HTTP client timeout. Zero leaves calls unbounded.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithTokenSource sets where the CSRF token comes from. Without one the
// CSRF-Token header is omitted.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithSessionCookie attaches the platform session cookie to every call.
func WithSessionCookie(value string) ClientOption {
	return func(c *Client) {
		c.session = value
	}
}

// WithLogger sets the logger used for call tracing.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the platform at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.NewValidationError("invalid backend URL").
			WithField("backend.url").
			WithValue(baseURL).
			WithCause(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, errors.NewValidationError("backend URL must be an absolute http(s) URL").
			WithField("backend.url").
			WithValue(baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		logger:     logging.NopLogger(),
		newID:      uuid.NewString,
	}

	for _, opt := range opts {
		opt(c)
	}
	// The caller's http.Client is never modified.
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}

	return c, nil
}

// BaseURL returns the platform base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ViewInfo asks whether a container is running for the challenge.
func (c *Client) ViewInfo(ctx context.Context, challengeID int) (Result, error) {
	return c.Do(ctx, OpView, challengeID)
}

// RequestContainer asks the backend to start a container.
func (c *Client) RequestContainer(ctx context.Context, challengeID int) (Result, error) {
	return c.Do(ctx, OpRequest, challengeID)
}

// RenewContainer extends the running container's expiry.
func (c *Client) RenewContainer(ctx context.Context, challengeID int) (Result, error) {
	return c.Do(ctx, OpRenew, challengeID)
}

// StopContainer terminates the running container.
func (c *Client) StopContainer(ctx context.Context, challengeID int) (Result, error) {
	return c.Do(ctx, OpStop, challengeID)
}

type callBody struct {
	ChallengeID int `json:"chal_id"`
}

// Do performs op for the challenge. Any HTTP status with a JSON body is a
// completed call; the reply decides the Result. Everything else returns a
// *errors.TransportError.
func (c *Client) Do(ctx context.Context, op Operation, challengeID int) (Result, error) {
	if !op.Valid() {
		return Result{}, errors.NewValidationError(fmt.Sprintf("unknown operation %q", op)).
			WithField("operation").
			WithCause(errors.ErrUnknownOperation)
	}
	if challengeID <= 0 {
		return Result{}, errors.NewValidationError("challenge id must be positive").
			WithField("chal_id").
			WithValue(challengeID).
			WithCause(errors.ErrInvalidChallenge)
	}

	requestID := c.newID()
	log := c.logger.WithChallenge(challengeID).WithOperation(string(op)).WithRequest(requestID)
	fail := func(cause error, msg string) (Result, error) {
		te := errors.NewTransportError(string(op), challengeID, cause).WithRequestID(requestID).WithMessage(msg)
		log.Debug("container call failed", "error", te.Error())
		return Result{}, te
	}

	payload, err := json.Marshal(callBody{ChallengeID: challengeID})
	if err != nil {
		return fail(err, "marshal request")
	}

	endpoint := c.baseURL.JoinPath(op.Path()).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fail(err, "create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fail(err, "csrf token")
		}
		req.Header.Set(csrfHeader, token)
	}
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: c.session})
	}

	start := time.Now()
	log.Debug("container call started", "url", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return fail(errors.Join(errors.ErrUnreadableReply, err), "read reply")
	}

	res, err := Decode(op, body)
	if err != nil {
		return fail(err, fmt.Sprintf("decode reply (status %d)", resp.StatusCode))
	}

	log.Debug("container call finished",
		"status", resp.StatusCode,
		"kind", res.Kind.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
