package mcp

import (
	"context"
	"iter"
)

// ClientTransport is the abstract duplex channel a Client drives (§4.1). A
// Client owns at most one ClientTransport for its lifetime; StartSession is
// called exactly once, by Connect.
type ClientTransport interface {
	// StartSession establishes the transport-level connection and returns an
	// iterator over inbound messages, in wire order. The iterator's range loop
	// ends when the transport closes, whether cleanly or in error; callers
	// should consult Closed to distinguish the two.
	StartSession(ctx context.Context) (iter.Seq[JSONRPCMessage], error)

	// Send delivers one message to the server. Submission order is preserved
	// per transport (§4.1 ordering). Send may fail synchronously with a
	// *TransportError; it never blocks past ctx's deadline.
	Send(ctx context.Context, msg JSONRPCMessage) error

	// Closed returns a channel that is closed exactly once, the moment the
	// transport becomes permanently unusable (explicit Close, process exit,
	// stream EOF, or an unrecoverable transport error).
	Closed() <-chan struct{}

	// Close idempotently tears the transport down, triggering Closed if it
	// has not already fired. Close must be safe to call more than once.
	Close() error
}
