package mcp

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// fakeTransport is an in-memory ClientTransport driven directly by a test,
// playing the part of the remote peer.
type fakeTransport struct {
	mu      sync.Mutex
	inbound chan JSONRPCMessage
	sent    []JSONRPCMessage

	sendErr error

	closeOnce sync.Once
	closeCh   chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound: make(chan JSONRPCMessage, 16),
		closeCh: make(chan struct{}),
	}
}

func (f *fakeTransport) StartSession(ctx context.Context) (iter.Seq[JSONRPCMessage], error) {
	return func(yield func(JSONRPCMessage) bool) {
		for {
			select {
			case msg, ok := <-f.inbound:
				if !ok {
					return
				}
				if !yield(msg) {
					return
				}
			case <-f.closeCh:
				return
			}
		}
	}, nil
}

func (f *fakeTransport) Send(ctx context.Context, msg JSONRPCMessage) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Closed() <-chan struct{} { return f.closeCh }

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closeCh) })
	return nil
}

func (f *fakeTransport) lastSent() (JSONRPCMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return JSONRPCMessage{}, false
	}
	return f.sent[len(f.sent)-1], true
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSessionSendRequestCompletesOnMatchingResponse(t *testing.T) {
	ft := newFakeTransport()
	s := newSession(ft, testLogger(), time.Second, time.Second)
	if err := s.start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	resultCh := make(chan json.RawMessage, 1)
	errCh := make(chan error, 1)
	go func() {
		result, err := s.sendRequest(context.Background(), "tools/list", nil)
		resultCh <- result
		errCh <- err
	}()

	var req JSONRPCMessage
	deadline := time.After(time.Second)
	for {
		if m, ok := ft.lastSent(); ok {
			req = m
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for outbound request")
		case <-time.After(time.Millisecond):
		}
	}

	if req.ID == "" {
		t.Fatal("expected request to carry an id")
	}
	if req.ID != "1" {
		t.Errorf("first request id = %q, want \"1\" (monotonic starting at 1)", req.ID)
	}

	ft.inbound <- JSONRPCMessage{JSONRPC: JSONRPCVersion, ID: req.ID, Result: json.RawMessage(`{"ok":true}`)}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("sendRequest error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for sendRequest to complete")
	}
	if string(<-resultCh) != `{"ok":true}` {
		t.Error("unexpected result payload")
	}
}

func TestSessionRequestIDsAreMonotonic(t *testing.T) {
	ft := newFakeTransport()
	s := newSession(ft, testLogger(), time.Second, time.Second)
	if err := s.start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 1; i <= 3; i++ {
		go s.sendRequest(context.Background(), "ping", nil)
	}

	deadline := time.After(time.Second)
	for {
		ft.mu.Lock()
		n := len(ft.sent)
		ft.mu.Unlock()
		if n >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for 3 outbound requests")
		case <-time.After(time.Millisecond):
		}
	}

	ft.mu.Lock()
	ids := map[string]bool{}
	for _, m := range ft.sent {
		ids[string(m.ID)] = true
	}
	ft.mu.Unlock()

	for _, want := range []string{"1", "2", "3"} {
		if !ids[want] {
			t.Errorf("missing request id %q among %v", want, ids)
		}
	}
}

func TestSessionSendRequestTimesOut(t *testing.T) {
	ft := newFakeTransport()
	s := newSession(ft, testLogger(), time.Second, 20*time.Millisecond)
	if err := s.start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err := s.sendRequest(context.Background(), "tools/list", nil)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if _, ok := err.(*TimeoutError); !ok {
		t.Errorf("got %T (%v), want *TimeoutError", err, err)
	}
}

func TestSessionSendRequestFailsAfterTransportCloses(t *testing.T) {
	ft := newFakeTransport()
	s := newSession(ft, testLogger(), time.Second, time.Second)
	if err := s.start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	resultErr := make(chan error, 1)
	go func() {
		_, err := s.sendRequest(context.Background(), "tools/list", nil)
		resultErr <- err
	}()

	time.Sleep(10 * time.Millisecond)
	ft.Close()

	select {
	case err := <-resultErr:
		if err == nil {
			t.Fatal("expected an error after transport close")
		}
		if _, ok := err.(*SessionTerminatedError); !ok {
			t.Errorf("got %T (%v), want *SessionTerminatedError", err, err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for teardown to complete the pending request")
	}
}

func TestSessionNotificationHandlerReplacesPrevious(t *testing.T) {
	ft := newFakeTransport()
	s := newSession(ft, testLogger(), time.Second, time.Second)
	if err := s.start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	var calls []int
	var mu sync.Mutex
	s.registerNotificationHandler("notifications/test", func(json.RawMessage) {
		mu.Lock()
		calls = append(calls, 1)
		mu.Unlock()
	})
	s.registerNotificationHandler("notifications/test", func(json.RawMessage) {
		mu.Lock()
		calls = append(calls, 2)
		mu.Unlock()
	})

	ft.inbound <- JSONRPCMessage{JSONRPC: JSONRPCVersion, Method: "notifications/test"}

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 || calls[0] != 2 {
		t.Errorf("calls = %v, want exactly one call from the second handler", calls)
	}
}

func TestSessionNotificationHandlerPanicIsRecovered(t *testing.T) {
	ft := newFakeTransport()
	s := newSession(ft, testLogger(), time.Second, time.Second)
	if err := s.start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	done := make(chan struct{})
	s.registerNotificationHandler("notifications/boom", func(json.RawMessage) {
		defer close(done)
		panic("boom")
	})

	ft.inbound <- JSONRPCMessage{JSONRPC: JSONRPCVersion, Method: "notifications/boom"}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}

	// The dispatch loop must still be alive after the panic.
	resultErr := make(chan error, 1)
	go func() {
		_, err := s.sendRequest(context.Background(), "ping", nil)
		resultErr <- err
	}()

	var id MustString
	deadline := time.After(time.Second)
	for {
		if m, ok := ft.lastSent(); ok && m.Method == "ping" {
			id = m.ID
			break
		}
		select {
		case <-deadline:
			t.Fatal("dispatch loop appears dead after a handler panic")
		case <-time.After(time.Millisecond):
		}
	}
	ft.inbound <- JSONRPCMessage{JSONRPC: JSONRPCVersion, ID: id, Result: json.RawMessage(`{}`)}

	if err := <-resultErr; err != nil {
		t.Fatalf("sendRequest after panic: %v", err)
	}
}
