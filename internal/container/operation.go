// Package container talks to the CTF platform's per-challenge container API.
//
// Four operations are exposed by the backend, all as POST requests carrying
// a JSON body of the form {"chal_id": <id>}:
//
//	view     /containers/api/view_info
//	request  /containers/api/request
//	renew    /containers/api/renew
//	stop     /containers/api/stop
//
// Replies are decoded into a [Result] tagged by [Kind]. Failures of the call
// itself (network, unreadable body, non-JSON body) are returned as
// *errors.TransportError; failures the backend reports in its reply are
// carried inside the Result as a *errors.BusinessError.
package container

import (
	"fmt"

	"github.com/Iron-Ham/chalbox/internal/errors"
)

// Operation identifies one of the four backend container operations.
type Operation string

const (
	OpView    Operation = "view"
	OpRequest Operation = "request"
	OpRenew   Operation = "renew"
	OpStop    Operation = "stop"
)

// Operations returns all operations in display order.
func Operations() []Operation {
	return []Operation{OpView, OpRequest, OpRenew, OpStop}
}

// ParseOperation converts a name such as "renew" into an Operation.
func ParseOperation(name string) (Operation, error) {
	op := Operation(name)
	if !op.Valid() {
		return "", errors.NewValidationError(fmt.Sprintf("unknown operation %q", name)).
			WithField("operation").
			WithCause(errors.ErrUnknownOperation)
	}
	return op, nil
}

// Valid reports whether o is one of the four known operations.
func (o Operation) Valid() bool {
	switch o {
	case OpView, OpRequest, OpRenew, OpStop:
		return true
	}
	return false
}

// Path returns the endpoint path relative to the platform base URL.
func (o Operation) Path() string {
	switch o {
	case OpView:
		return "/containers/api/view_info"
	case OpRequest:
		return "/containers/api/request"
	case OpRenew:
		return "/containers/api/renew"
	case OpStop:
		return "/containers/api/stop"
	}
	return ""
}

// Verb returns the progressive verb used in user-facing failure text.
func (o Operation) Verb() string {
	switch o {
	case OpView:
		return "fetching"
	case OpRequest:
		return "requesting"
	case OpRenew:
		return "renewing"
	case OpStop:
		return "stopping"
	}
	return "contacting"
}

// FailureText is the fixed message shown when the call itself fails.
func (o Operation) FailureText() string {
	return fmt.Sprintf("Error %s container info.", o.Verb())
}

func (o Operation) String() string {
	return string(o)
}
