package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"
	"golang.org/x/oauth2"
	"golang.org/x/sync/semaphore"
)

// SSETransport is the ClientTransport of §4.3: a persistent SSE GET for
// inbound events, paired with bounded-concurrency HTTP POSTs for outbound
// requests. The POST endpoint is not configured up front; it is discovered
// from the server's first "endpoint" SSE frame (§4.3 endpoint discovery).
type SSETransport struct {
	connectURL string
	httpClient *http.Client
	logger     *slog.Logger
	tokenSrc   oauth2TokenSource

	discoveryTimeout time.Duration
	maxPayloadSize   int
	sem              *semaphore.Weighted
	terminateOnClose bool

	// sessionID is the opaque per-connection identifier appended to the GET
	// URL's session_id query parameter and carried on every POST's
	// Mcp-Session-Id header (§4.3, §6); it also doubles as the
	// X-Correlation-Id header value.
	sessionID string

	mu         sync.Mutex
	messageURL string
	getCancel  context.CancelFunc
	getBody    io.Closer

	messages    chan JSONRPCMessage
	closeOnce   sync.Once
	cleanupOnce sync.Once
	closeCh     chan struct{}
	closeErr    error
}

// oauth2TokenSource is the bearer-token source this package consults: any
// type whose Token method returns the access token as a string. A
// golang.org/x/oauth2.TokenSource does not satisfy it directly (its Token
// returns *oauth2.Token); WithSSEOAuth2TokenSource wraps one in
// oauth2TokenSourceAdapter.
type oauth2TokenSource interface {
	Token() (accessToken string, err error)
}

// SSEClientOption configures an SSETransport.
type SSEClientOption func(*SSETransport)

// WithSSEHTTPClient overrides the *http.Client used for both the inbound GET
// and outbound POSTs.
func WithSSEHTTPClient(client *http.Client) SSEClientOption {
	return func(s *SSETransport) { s.httpClient = client }
}

// WithSSELogger overrides the transport's logger.
func WithSSELogger(logger *slog.Logger) SSEClientOption {
	return func(s *SSETransport) { s.logger = logger }
}

// WithSSEMaxPayloadSize bounds the size of a single inbound SSE event.
func WithSSEMaxPayloadSize(size int) SSEClientOption {
	return func(s *SSETransport) { s.maxPayloadSize = size }
}

// WithSSEDiscoveryTimeout bounds how long StartSession waits for the
// server's "endpoint" frame before failing (§4.3).
func WithSSEDiscoveryTimeout(d time.Duration) SSEClientOption {
	return func(s *SSETransport) { s.discoveryTimeout = d }
}

// WithSSEMaxConcurrentPosts bounds the number of outbound POSTs in flight at
// once (§4.3 backpressure); excess sends queue FIFO-fair.
func WithSSEMaxConcurrentPosts(n int64) SSEClientOption {
	return func(s *SSETransport) { s.sem = semaphore.NewWeighted(n) }
}

// WithSSETokenSource supplies a bearer token consulted before every outbound
// POST (§4.3, §6). Accepts any type with a Token() (string, error) method,
// including an adapter over golang.org/x/oauth2.TokenSource.
func WithSSETokenSource(src oauth2TokenSource) SSEClientOption {
	return func(s *SSETransport) { s.tokenSrc = src }
}

// oauth2TokenSourceAdapter adapts a golang.org/x/oauth2.TokenSource to the
// oauth2TokenSource interface this package consults, extracting just the
// access token string.
type oauth2TokenSourceAdapter struct {
	src oauth2.TokenSource
}

func (a oauth2TokenSourceAdapter) Token() (string, error) {
	tok, err := a.src.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// WithSSEOAuth2TokenSource installs a golang.org/x/oauth2.TokenSource
// (refresh-token, client-credentials, or any other oauth2 flow) as the
// transport's bearer token source. Equivalent to wrapping src with an
// adapter and passing it to WithSSETokenSource.
func WithSSEOAuth2TokenSource(src oauth2.TokenSource) SSEClientOption {
	return func(s *SSETransport) { s.tokenSrc = oauth2TokenSourceAdapter{src: src} }
}

// WithSSETerminateOnClose controls whether Close sends a DELETE to the
// discovered message endpoint to terminate the session server-side (§4.3,
// §6). Enabled by default; a 405 response is treated as "unsupported" and
// ignored.
func WithSSETerminateOnClose(terminate bool) SSEClientOption {
	return func(s *SSETransport) { s.terminateOnClose = terminate }
}

// NewSSETransport constructs a transport that will connect to connectURL
// when StartSession is called.
func NewSSETransport(connectURL string, opts ...SSEClientOption) *SSETransport {
	s := &SSETransport{
		connectURL:       connectURL,
		httpClient:       http.DefaultClient,
		logger:           slog.Default(),
		discoveryTimeout: 10 * time.Second,
		sem:              semaphore.NewWeighted(10),
		terminateOnClose: true,
		sessionID:        uuid.New().String(),
		messages:         make(chan JSONRPCMessage),
		closeCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession opens the inbound GET stream, waits for the server's
// endpoint frame, and returns an iterator over subsequent "message" events.
func (s *SSETransport) StartSession(ctx context.Context) (iter.Seq[JSONRPCMessage], error) {
	getCtx, cancel := context.WithCancel(ctx)

	reqURL, err := withSessionIDQuery(s.connectURL, s.sessionID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build SSE GET request: %w", err)
	}

	req, err := http.NewRequestWithContext(getCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build SSE GET request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept-Encoding", "identity")
	if err := s.authorize(req); err != nil {
		cancel()
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, &TransportError{Op: "connect SSE stream", Err: err}
	}
	if err := statusToError(resp.StatusCode, "connect SSE stream"); err != nil {
		resp.Body.Close()
		cancel()
		return nil, err
	}

	s.mu.Lock()
	s.getCancel = cancel
	s.getBody = resp.Body
	s.mu.Unlock()

	discovered := make(chan error, 1)
	go s.listenSSEMessages(resp.Body, discovered)

	timer := time.NewTimer(s.discoveryTimeout)
	defer timer.Stop()

	select {
	case err := <-discovered:
		if err != nil {
			cancel()
			return nil, &TransportError{Op: "discover SSE endpoint", Err: err}
		}
	case <-timer.C:
		cancel()
		return nil, &TransportError{Op: "discover SSE endpoint", Err: errors.New("timed out waiting for endpoint event")}
	case <-ctx.Done():
		cancel()
		return nil, &TransportError{Op: "discover SSE endpoint", Err: ctx.Err()}
	}

	return s.iterMessages, nil
}

// withSessionIDQuery appends a session_id query parameter to rawURL if one
// is not already present (§4.3 inbound, §6 SSE wire).
func withSessionIDQuery(rawURL, sessionID string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse connect URL: %w", err)
	}
	q := u.Query()
	if q.Get("session_id") == "" {
		q.Set("session_id", sessionID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// listenSSEMessages parses the persistent inbound stream, tolerant of
// arbitrary chunk/UTF-8 splits (go-sse buffers internally). The first
// "endpoint" frame resolves the outbound POST URL and unblocks discovered;
// every "message" frame after that is decoded and forwarded.
func (s *SSETransport) listenSSEMessages(body io.ReadCloser, discovered chan<- error) {
	defer func() {
		body.Close()
		s.closeWith(errors.New("SSE stream ended"))
		close(s.messages)
	}()

	var cfg *sse.ReadConfig
	if s.maxPayloadSize > 0 {
		cfg = &sse.ReadConfig{MaxEventSize: s.maxPayloadSize}
	}

	discoveredOnce := false

	for ev, err := range sse.Read(body, cfg) {
		if err != nil {
			if !discoveredOnce {
				discovered <- err
			} else if !errors.Is(err, context.Canceled) {
				s.logger.Error("SSE stream read failed", "err", err)
			}
			s.closeWith(fmt.Errorf("SSE stream closed: %w", err))
			return
		}

		switch ev.Type {
		case "endpoint":
			u, perr := s.resolveEndpoint(ev.Data)
			if perr != nil {
				discovered <- perr
				return
			}
			s.mu.Lock()
			s.messageURL = u
			s.mu.Unlock()
			discoveredOnce = true
			discovered <- nil
		case "message":
			if !discoveredOnce {
				s.logger.Warn("dropping message received before endpoint discovery")
				continue
			}
			var msg JSONRPCMessage
			if jerr := json.Unmarshal([]byte(ev.Data), &msg); jerr != nil {
				s.logger.Warn("dropping unparseable SSE message", "err", jerr)
				continue
			}
			select {
			case s.messages <- msg:
			case <-s.closeCh:
				return
			}
		default:
			s.logger.Debug("ignoring unrecognized SSE event type", "type", string(ev.Type))
		}
	}
}

func (s *SSETransport) resolveEndpoint(data string) (string, error) {
	base, err := url.Parse(s.connectURL)
	if err != nil {
		return "", fmt.Errorf("parse connect URL: %w", err)
	}
	ref, err := url.Parse(data)
	if err != nil {
		return "", fmt.Errorf("parse endpoint URL: %w", err)
	}
	resolved := base.ResolveReference(ref)
	if resolved.String() == "" {
		return "", errors.New("empty endpoint URL")
	}
	return resolved.String(), nil
}

func (s *SSETransport) iterMessages(yield func(JSONRPCMessage) bool) {
	for msg := range s.messages {
		if !yield(msg) {
			return
		}
	}
}

// Send posts msg to the discovered endpoint, bounded by the configured
// concurrency semaphore. A text/event-stream response is treated as a
// one-shot inline reply stream (§4.3): each of its "message" events is
// forwarded exactly as if it had arrived on the persistent GET.
func (s *SSETransport) Send(ctx context.Context, msg JSONRPCMessage) error {
	s.mu.Lock()
	messageURL := s.messageURL
	s.mu.Unlock()
	if messageURL == "" {
		return &TransportError{Op: "send", Err: errors.New("endpoint not yet discovered")}
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	defer s.sem.Release(1)

	data, err := json.Marshal(msg)
	if err != nil {
		return &ProtocolError{Reason: "marshal outbound message", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, messageURL, bytes.NewReader(data))
	if err != nil {
		return &TransportError{Op: "build POST request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-Id", s.sessionID)
	req.Header.Set("Mcp-Session-Id", s.sessionID)
	if err := s.authorize(req); err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	defer resp.Body.Close()

	if err := statusToError(resp.StatusCode, "send"); err != nil {
		return err
	}

	if ct := resp.Header.Get("Content-Type"); len(ct) >= len("text/event-stream") && ct[:len("text/event-stream")] == "text/event-stream" {
		return s.consumeOneShotStream(resp.Body)
	}

	return nil
}

// consumeOneShotStream reads a single POST response delivered as an SSE
// stream rather than a persistent one, forwarding its "message" events and
// returning once the stream ends.
func (s *SSETransport) consumeOneShotStream(body io.Reader) error {
	var cfg *sse.ReadConfig
	if s.maxPayloadSize > 0 {
		cfg = &sse.ReadConfig{MaxEventSize: s.maxPayloadSize}
	}

	for ev, err := range sse.Read(body, cfg) {
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return &TransportError{Op: "read one-shot response stream", Err: err}
		}
		if ev.Type != "message" {
			continue
		}
		var msg JSONRPCMessage
		if jerr := json.Unmarshal([]byte(ev.Data), &msg); jerr != nil {
			s.logger.Warn("dropping unparseable one-shot message", "err", jerr)
			continue
		}
		select {
		case s.messages <- msg:
		case <-s.closeCh:
			return nil
		}
	}
	return nil
}

func (s *SSETransport) authorize(req *http.Request) error {
	if s.tokenSrc == nil {
		return nil
	}
	token, err := s.tokenSrc.Token()
	if err != nil {
		return &AuthRequiredError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// statusToError maps an HTTP response status to the §7 error taxonomy.
func statusToError(status int, op string) error {
	switch {
	case status == http.StatusOK || status == http.StatusAccepted:
		return nil
	case status == http.StatusUnauthorized:
		return &AuthRequiredError{Err: fmt.Errorf("%s: HTTP %d", op, status)}
	case status == http.StatusNotFound:
		return &SessionTerminatedError{Err: fmt.Errorf("%s: HTTP %d", op, status)}
	case status >= 400:
		return &TransportError{Op: op, Err: fmt.Errorf("unexpected status %d", status)}
	default:
		return nil
	}
}

// Closed returns the channel that fires when the inbound stream ends or
// Close is called.
func (s *SSETransport) Closed() <-chan struct{} { return s.closeCh }

func (s *SSETransport) closeWith(err error) {
	s.closeOnce.Do(func() {
		s.closeErr = err
		close(s.closeCh)
	})
}

// Close tears the transport down: it cancels the inbound GET, forcibly
// closes its underlying socket, and, if terminateOnClose is set, DELETEs
// the discovered session endpoint before reporting closed (§4.3). Safe to
// call more than once.
func (s *SSETransport) Close() error {
	s.cleanupOnce.Do(func() {
		s.mu.Lock()
		cancel := s.getCancel
		body := s.getBody
		messageURL := s.messageURL
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if body != nil {
			body.Close()
		}

		if s.terminateOnClose && messageURL != "" {
			s.terminateSession(messageURL)
		}
	})

	s.closeWith(errors.New("transport closed"))
	return nil
}

// terminateSession sends the optional DELETE of §4.3/§6. A 405 means the
// server doesn't support termination and is ignored; other failures are
// logged, not returned, since Close itself must not fail.
func (s *SSETransport) terminateSession(messageURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, messageURL, nil)
	if err != nil {
		s.logger.Warn("failed to build session termination request", "err", err)
		return
	}
	req.Header.Set("Mcp-Session-Id", s.sessionID)
	if err := s.authorize(req); err != nil {
		s.logger.Warn("failed to authorize session termination request", "err", err)
		return
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("session termination request failed", "err", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed {
		return
	}
	if resp.StatusCode >= 400 {
		s.logger.Warn("session termination request returned unexpected status", "status", resp.StatusCode)
	}
}
