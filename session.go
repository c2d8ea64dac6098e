package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// NotificationHandler processes one inbound notification. It runs on the
// session's single dispatch goroutine and must not block; any panic it
// raises is recovered and logged rather than propagated (§4.4, §7).
type NotificationHandler func(params json.RawMessage)

// RequestHandler answers one inbound server-originated request (ping,
// roots/list, sampling/createMessage) and returns the value to encode as the
// JSON-RPC result.
type RequestHandler func(ctx context.Context, params json.RawMessage) (any, error)

type pendingResult struct {
	msg JSONRPCMessage
	err error
}

// session is the JSON-RPC engine of §4.4: request/notification multiplexing
// with correlated completion, timeout, cancellation, and teardown semantics.
// It knows nothing about MCP methods or capabilities — that's the facade's
// job (client.go). Its pending registry, notification table, and transport
// handle are exclusively its own (§5 shared-resource policy); no external
// code mutates them directly.
type session struct {
	transport ClientTransport
	logger    *slog.Logger

	writeTimeout time.Duration
	readTimeout  time.Duration

	nextID int64 // atomic; allocated in program order starting at 1 (§8)

	mu              sync.Mutex
	pending         map[string]chan pendingResult
	notifHandlers   map[string]NotificationHandler
	requestHandlers map[string]RequestHandler
	closed          bool

	closeCh  chan struct{}
	closeErr error
}

func newSession(transport ClientTransport, logger *slog.Logger, writeTimeout, readTimeout time.Duration) *session {
	return &session{
		transport:       transport,
		logger:          logger,
		writeTimeout:    writeTimeout,
		readTimeout:     readTimeout,
		pending:         make(map[string]chan pendingResult),
		notifHandlers:   make(map[string]NotificationHandler),
		requestHandlers: make(map[string]RequestHandler),
		closeCh:         make(chan struct{}),
	}
}

// start begins the transport-level connection and the single inbound
// dispatch loop. It must be called exactly once.
func (s *session) start(ctx context.Context) error {
	msgs, err := s.transport.StartSession(ctx)
	if err != nil {
		return &TransportError{Op: "start session", Err: err}
	}

	go s.dispatchLoop(msgs)
	go s.watchTransportClose()

	return nil
}

func (s *session) watchTransportClose() {
	<-s.transport.Closed()
	s.teardown(errTransportClosed)
}

func (s *session) dispatchLoop(msgs iter.Seq[JSONRPCMessage]) {
	for msg := range msgs {
		s.dispatch(msg)
	}
	// The iterator ended; the transport is gone even if Closed() hasn't
	// fired yet (it will, momentarily, and teardown is idempotent).
	s.teardown(errTransportClosed)
}

func (s *session) dispatch(msg JSONRPCMessage) {
	if msg.JSONRPC != "" && msg.JSONRPC != JSONRPCVersion {
		s.logger.Error("dropping message with unexpected jsonrpc version", "version", msg.JSONRPC)
		return
	}

	switch {
	case msg.IsResponse():
		s.completeRequest(msg)
	case msg.Method != "" && msg.ID == "":
		s.dispatchNotification(msg)
	case msg.Method != "" && msg.ID != "":
		s.dispatchRequest(msg)
	default:
		s.logger.Warn("dropping unrecognized message", "raw", msg)
	}
}

func (s *session) completeRequest(msg JSONRPCMessage) {
	s.mu.Lock()
	ch, ok := s.pending[string(msg.ID)]
	if ok {
		delete(s.pending, string(msg.ID))
	}
	s.mu.Unlock()

	if !ok {
		// Either unknown (protocol noise) or already resolved by timeout; a
		// late response for a timed-out id is dropped (§5 cancellation).
		s.logger.Debug("dropping response for unknown or resolved request", "id", string(msg.ID))
		return
	}
	ch <- pendingResult{msg: msg}
}

func (s *session) dispatchNotification(msg JSONRPCMessage) {
	s.mu.Lock()
	h, ok := s.notifHandlers[msg.Method]
	s.mu.Unlock()

	if !ok {
		s.logger.Debug("no handler registered for notification", "method", msg.Method)
		return
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("notification handler panicked", "method", msg.Method, "panic", r)
			}
		}()
		h(msg.Params)
	}()
}

func (s *session) dispatchRequest(msg JSONRPCMessage) {
	s.mu.Lock()
	h, ok := s.requestHandlers[msg.Method]
	s.mu.Unlock()

	if !ok {
		s.logger.Warn("no handler registered for server request; ignoring", "method", msg.Method)
		return
	}

	go func() {
		ctx := context.Background()
		result, err := func() (result any, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("request handler panicked: %v", r)
				}
			}()
			return h(ctx, msg.Params)
		}()

		wCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()

		if err != nil {
			s.logger.Error("request handler failed", "method", msg.Method, "err", err)
			_ = s.sendError(wCtx, msg.ID, JSONRPCError{
				Code:    jsonRPCInternalErrorCode,
				Message: "Internal error",
				Data:    map[string]any{"error": err.Error()},
			})
			return
		}
		if err := s.sendResult(wCtx, msg.ID, result); err != nil {
			s.logger.Error("failed to send result for server request", "method", msg.Method, "err", err)
		}
	}()
}

// nextRequestID allocates the next client-local monotonic request id,
// strictly increasing starting at 1 (§3, §8).
func (s *session) nextRequestID() MustString {
	id := atomic.AddInt64(&s.nextID, 1)
	return MustString(strconv.FormatInt(id, 10))
}

// sendRequest allocates an id, registers a completion, hands the message to
// the transport, and awaits exactly one of: success, RemoteError, Timeout,
// or TransportClosed (§4.4 send-request algorithm, §8 invariant).
func (s *session) sendRequest(ctx context.Context, method string, params any) (json.RawMessage, error) {
	paramsBs, err := marshalParams(params)
	if err != nil {
		return nil, &ProtocolError{Reason: "marshal request params", Err: err}
	}

	id := s.nextRequestID()
	resultCh := make(chan pendingResult, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errTransportClosed
	}
	s.pending[string(id)] = resultCh
	s.mu.Unlock()

	removePending := func() {
		s.mu.Lock()
		delete(s.pending, string(id))
		s.mu.Unlock()
	}

	sendCtx, sendCancel := context.WithTimeout(ctx, s.writeTimeout)
	sendErr := s.transport.Send(sendCtx, JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  paramsBs,
	})
	sendCancel()
	if sendErr != nil {
		removePending()
		return nil, &TransportError{Op: "send " + method, Err: sendErr}
	}

	timer := time.NewTimer(s.readTimeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, res.err
		}
		if res.msg.Error != nil {
			return nil, &RemoteError{JSONRPCError: res.msg.Error}
		}
		return res.msg.Result, nil
	case <-timer.C:
		removePending()
		return nil, &TimeoutError{Method: method}
	case <-ctx.Done():
		removePending()
		_ = s.sendNotification(context.Background(), methodNotificationsCancelled, notificationsCancelledParams{
			RequestID: string(id),
			Reason:    userCancelledReason,
		})
		return nil, ctx.Err()
	case <-s.closeCh:
		removePending()
		return nil, s.closeErrOrDefault()
	}
}

// sendNotification fires a notification with no id and no pending entry.
func (s *session) sendNotification(ctx context.Context, method string, params any) error {
	paramsBs, err := marshalParams(params)
	if err != nil {
		return &ProtocolError{Reason: "marshal notification params", Err: err}
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	if err := s.transport.Send(sendCtx, JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  paramsBs,
	}); err != nil {
		return &TransportError{Op: "send notification " + method, Err: err}
	}
	return nil
}

func (s *session) sendResult(ctx context.Context, id MustString, result any) error {
	resBs, err := marshalParams(result)
	if err != nil {
		return &ProtocolError{Reason: "marshal result", Err: err}
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	return s.transport.Send(sendCtx, JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  resBs,
	})
}

func (s *session) sendError(ctx context.Context, id MustString, jerr JSONRPCError) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	return s.transport.Send(sendCtx, JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &jerr,
	})
}

// registerNotificationHandler installs h for method, replacing any handler
// previously registered for the same method (§4.5, §9: single handler keyed
// by method string).
func (s *session) registerNotificationHandler(method string, h NotificationHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifHandlers[method] = h
}

func (s *session) registerRequestHandler(method string, h RequestHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestHandlers[method] = h
}

// teardown completes every pending request with err in one fan-out and marks
// the session closed. Idempotent (§4.4, §5, §8).
func (s *session) teardown(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.closeErr = err
	pending := s.pending
	s.pending = make(map[string]chan pendingResult)
	s.mu.Unlock()

	for _, ch := range pending {
		ch <- pendingResult{err: err}
	}
	close(s.closeCh)
}

func (s *session) closeErrOrDefault() error {
	if s.closeErr != nil {
		return s.closeErr
	}
	return errTransportClosed
}

// close tears the session down and closes the underlying transport.
func (s *session) close() error {
	s.teardown(errTransportClosed)
	return s.transport.Close()
}

// marshalParams encodes v as JSON, producing an independent byte copy so the
// caller's value can't be mutated out from under an in-flight send (§4.4
// step 3: "params deep-copied to prevent caller mutation races").
func marshalParams(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	bs, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(bs), nil
}
