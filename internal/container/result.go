package container

import (
	"bytes"
	"encoding/json"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Iron-Ham/chalbox/internal/errors"
)

// Status strings the backend uses in view replies.
const (
	StatusNotStarted     = "Challenge not started"
	StatusAlreadyRunning = "already_running"
	StatusCreated        = "created"
)

// Kind tags the variant held by a Result.
type Kind int

const (
	// KindNotStarted means no container is running for the challenge.
	KindNotStarted Kind = iota + 1
	// KindRunning means a container is running and Connection is populated.
	KindRunning
	// KindStopped means a stop call succeeded.
	KindStopped
	// KindFailed means the backend reported a failure in its reply.
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindNotStarted:
		return "not_started"
	case KindRunning:
		return "running"
	case KindStopped:
		return "stopped"
	case KindFailed:
		return "failed"
	}
	return "unknown"
}

// Connection describes how to reach a running container.
type Connection struct {
	// Connect is the connection type. "tcp" renders as a netcat command,
	// anything else as an http link.
	Connect   string    `json:"connect"`
	Hostname  string    `json:"hostname"`
	Port      int       `json:"port"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsTCP reports whether the container is reached with a raw TCP client.
func (c Connection) IsTCP() bool {
	return c.Connect == "tcp"
}

// Address returns host:port, bracketing IPv6 hosts.
func (c Connection) Address() string {
	return net.JoinHostPort(c.Hostname, strconv.Itoa(c.Port))
}

// Result is a decoded backend reply.
type Result struct {
	Op   Operation `json:"op"`
	Kind Kind      `json:"kind"`
	// Status is the raw status text of the reply, if any.
	Status string `json:"status,omitempty"`
	// Connection is set when Kind is KindRunning.
	Connection Connection `json:"connection"`
	// Failure is set when Kind is KindFailed.
	Failure *errors.BusinessError `json:"-"`
}

// Text returns the backend-supplied failure text, or "" for successful results.
func (r Result) Text() string {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.Text
}

// reply mirrors the union of fields the backend may send for any operation.
type reply struct {
	Status   string     `json:"status"`
	Connect  string     `json:"connect"`
	Hostname string     `json:"hostname"`
	Port     flexInt    `json:"port"`
	Expires  flexNumber `json:"expires"`
	Error    string     `json:"error"`
	Message  string     `json:"message"`
	Success  string     `json:"success"`
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n flexNumber
	if err := n.UnmarshalJSON(data); err != nil {
		return err
	}
	*f = flexInt(int(n))
	return nil
}

// flexNumber accepts a JSON number, a numeric string, or null.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = flexNumber(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexNumber(v)
	return nil
}

// Decode interprets a reply body for op. A body that is not a JSON object
// yields an error wrapping errors.ErrMalformedReply.
func Decode(op Operation, body []byte) (Result, error) {
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '{' {
		return Result{}, errors.Wrapf(errors.ErrMalformedReply, "decode %s reply: not a JSON object", op)
	}
	var r reply
	if err := json.Unmarshal(body, &r); err != nil {
		return Result{}, errors.Wrapf(errors.Join(errors.ErrMalformedReply, err), "decode %s reply", op)
	}
	if !op.Valid() {
		return Result{}, errors.ErrUnknownOperation
	}

	res := Result{Op: op, Status: r.Status}

	if op == OpView {
		switch r.Status {
		case StatusNotStarted:
			res.Kind = KindNotStarted
		case StatusAlreadyRunning:
			res.Kind = KindRunning
			res.Connection = r.connection()
		default:
			field, text := viewFailure(op, r)
			res.Kind = KindFailed
			res.Failure = errors.NewBusinessError(string(op), field, text)
		}
		return res, nil
	}

	switch {
	case r.Error != "":
		res.Kind = KindFailed
		res.Failure = errors.NewBusinessError(string(op), "error", r.Error)
	case r.Message != "":
		res.Kind = KindFailed
		res.Failure = errors.NewBusinessError(string(op), "message", r.Message)
	case op == OpStop:
		res.Kind = KindStopped
	default:
		res.Kind = KindRunning
		res.Connection = r.connection()
	}
	return res, nil
}

// viewFailure picks the text for a view reply that is neither running nor
// not-started: message first, then error, then the raw status.
func viewFailure(op Operation, r reply) (field, text string) {
	switch {
	case r.Message != "":
		return "message", r.Message
	case r.Error != "":
		return "error", r.Error
	case r.Status != "":
		return "status", r.Status
	}
	return "status", op.FailureText()
}

func (r reply) connection() Connection {
	return Connection{
		Connect:   r.Connect,
		Hostname:  r.Hostname,
		Port:      int(r.Port),
		ExpiresAt: epochToTime(float64(r.Expires)),
	}
}

func epochToTime(secs float64) time.Time {
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*float64(time.Second)))
}
