package mcp

import (
	"errors"
	"fmt"
)

// The error taxonomy of §7: the seven kinds below (RemoteError wraps
// *JSONRPCError directly rather than duplicating its fields). Callers
// distinguish them with errors.As. A cancelled caller context is reported as
// ctx.Err() itself, not as one of these kinds.

// TransportError reports an I/O, encoding, or HTTP-level failure from a
// transport: an unreachable endpoint, a write that failed synchronously, or
// an HTTP status this package doesn't otherwise map.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a malformed envelope, an unknown content tag, or a
// required field missing from a decoded message.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol error: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ClientError reports caller misuse: calling before initialization, calling
// a method the server hasn't advertised, double-connecting, or an invalid
// argument. ClientError is always raised before any message reaches the
// wire (§7 user-visible behavior).
type ClientError struct {
	Reason string
}

func (e *ClientError) Error() string {
	return "client error: " + e.Reason
}

// RemoteError reports a response that carried a JSON-RPC error object. Code
// and Message are the server's original values, preserved verbatim.
type RemoteError struct {
	*JSONRPCError
}

func (e *RemoteError) Error() string {
	return "remote error: " + e.JSONRPCError.Error()
}

func (e *RemoteError) Unwrap() error { return e.JSONRPCError }

// TimeoutError reports that a request exceeded its deadline. The session
// that raised it remains usable for further calls (§7).
type TimeoutError struct {
	Method string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timeout: %s", e.Method)
}

// AuthRequiredError reports an HTTP 401, or an explicit unauthenticated
// signal surfaced by a transport.
type AuthRequiredError struct {
	Err error
}

func (e *AuthRequiredError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication required: %v", e.Err)
	}
	return "authentication required"
}

func (e *AuthRequiredError) Unwrap() error { return e.Err }

// SessionTerminatedError reports that the server closed or never recognized
// the session: an HTTP 404 on an SSE POST, or a remote close observed before
// a pending response arrived.
type SessionTerminatedError struct {
	Err error
}

func (e *SessionTerminatedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session terminated: %v", e.Err)
	}
	return "session terminated"
}

func (e *SessionTerminatedError) Unwrap() error { return e.Err }

// errTransportClosed is returned to every pending request when the
// transport closes out from under the session (§4.4 "on transport close").
var errTransportClosed = &SessionTerminatedError{Err: errors.New("transport closed")}
