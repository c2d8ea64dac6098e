package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ToolListWatcher is notified when the server's tool list changes.
type ToolListWatcher interface{ OnToolListChanged() }

// ResourceListWatcher is notified when the server's resource list changes.
type ResourceListWatcher interface{ OnResourceListChanged() }

// PromptListWatcher is notified when the server's prompt list changes.
type PromptListWatcher interface{ OnPromptListChanged() }

// ResourceSubscribedWatcher is notified when a subscribed resource's
// contents change.
type ResourceSubscribedWatcher interface{ OnResourceUpdated(uri string) }

// ProgressListener receives progress notifications for in-flight operations.
type ProgressListener interface{ OnProgress(p ProgressParams) }

// LogReceiver receives server log notifications.
type LogReceiver interface{ OnLog(p LogParams) }

// RootsListHandler answers the server's roots/list request with the
// client's currently exposed roots.
type RootsListHandler interface {
	ListRoots(ctx context.Context) ([]Root, error)
}

// SamplingHandler answers the server's sampling/createMessage request by
// invoking a local model and returning its response.
type SamplingHandler interface {
	CreateMessage(ctx context.Context, req CreateMessageRequest) (CreateMessageResult, error)
}

// Client is the capability-gated MCP protocol facade of §4.5. It owns one
// session (and therefore one transport) for its lifetime: construct with
// NewClient, connect with Connect, and drive it through the typed methods
// below until Close.
type Client struct {
	transport ClientTransport
	logger    *slog.Logger

	clientInfo       Info
	capabilities     ClientCapabilities
	writeTimeout     time.Duration
	readTimeout      time.Duration
	handshakeTimeout time.Duration

	handshakeAttempts int
	handshakeDelay    time.Duration

	pingInterval         time.Duration
	pingTimeoutThreshold int

	sess *session

	mu                 sync.Mutex
	initialized        bool
	serverCapabilities ServerCapabilities
	serverInfo         Info
	serverProtoVersion string

	rootsMu sync.Mutex
	roots   []Root

	samplingHandler  SamplingHandler
	rootsListHandler RootsListHandler

	toolListWatcher     ToolListWatcher
	resourceListWatcher ResourceListWatcher
	promptListWatcher   PromptListWatcher
	resourceSubscribed  ResourceSubscribedWatcher
	progressListener    ProgressListener
	logReceiver         LogReceiver

	tools *toolCache

	stopPing chan struct{}
}

// ClientOption configures a Client constructed with NewClient.
type ClientOption func(*Client)

// WithClientLogger overrides the client's logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithClientInfo sets the name/version the client identifies itself with
// during the handshake.
func WithClientInfo(info Info) ClientOption {
	return func(c *Client) { c.clientInfo = info }
}

// WithRootsCapability advertises the roots capability, and whether the
// client will emit notifications/roots/list_changed when its root set
// changes.
func WithRootsCapability(listChanged bool) ClientOption {
	return func(c *Client) {
		c.capabilities.Roots = true
		c.capabilities.RootsListChanged = listChanged
	}
}

// WithSamplingCapability advertises the sampling capability and installs
// the handler that answers inbound sampling/createMessage requests.
func WithSamplingCapability(h SamplingHandler) ClientOption {
	return func(c *Client) {
		c.capabilities.Sampling = true
		c.samplingHandler = h
	}
}

// WithRootsListHandler installs the handler that answers inbound
// roots/list requests. Independent of WithRootsCapability: a client may
// serve roots/list without advertising change notifications.
func WithRootsListHandler(h RootsListHandler) ClientOption {
	return func(c *Client) { c.rootsListHandler = h }
}

// WithToolListWatcher installs the tools/list_changed notification handler.
func WithToolListWatcher(w ToolListWatcher) ClientOption {
	return func(c *Client) { c.toolListWatcher = w }
}

// WithResourceListWatcher installs the resources/list_changed notification handler.
func WithResourceListWatcher(w ResourceListWatcher) ClientOption {
	return func(c *Client) { c.resourceListWatcher = w }
}

// WithPromptListWatcher installs the prompts/list_changed notification handler.
func WithPromptListWatcher(w PromptListWatcher) ClientOption {
	return func(c *Client) { c.promptListWatcher = w }
}

// WithResourceSubscribedWatcher installs the resources/updated notification handler.
func WithResourceSubscribedWatcher(w ResourceSubscribedWatcher) ClientOption {
	return func(c *Client) { c.resourceSubscribed = w }
}

// WithProgressListener installs the notifications/progress handler.
func WithProgressListener(l ProgressListener) ClientOption {
	return func(c *Client) { c.progressListener = l }
}

// WithLogReceiver installs the notifications/message handler.
func WithLogReceiver(r LogReceiver) ClientOption {
	return func(c *Client) { c.logReceiver = r }
}

// WithWriteTimeout bounds how long a single outbound send may take.
func WithWriteTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.writeTimeout = d }
}

// WithReadTimeout bounds how long a request waits for its response.
func WithReadTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.readTimeout = d }
}

// WithHandshakeTimeout bounds a single initialize attempt.
func WithHandshakeTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.handshakeTimeout = d }
}

// WithHandshakeRetries bounds the initial handshake to attempts tries,
// delay apart. Reconnection after a session is lost is out of scope (§9);
// this applies only to Connect.
func WithHandshakeRetries(attempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.handshakeAttempts = attempts
		c.handshakeDelay = delay
	}
}

// WithPingInterval enables a liveness ping loop once connected, firing every
// interval. Zero (the default) disables the loop.
func WithPingInterval(interval time.Duration, missedThreshold int) ClientOption {
	return func(c *Client) {
		c.pingInterval = interval
		c.pingTimeoutThreshold = missedThreshold
	}
}

// NewClient constructs a Client bound to transport. Connect must be called
// before any other method.
func NewClient(transport ClientTransport, opts ...ClientOption) *Client {
	c := &Client{
		transport:            transport,
		logger:               slog.Default(),
		clientInfo:           Info{Name: "mcpclient", Version: "0.1.0"},
		writeTimeout:         10 * time.Second,
		readTimeout:          30 * time.Second,
		handshakeTimeout:     30 * time.Second,
		handshakeAttempts:    3,
		handshakeDelay:       2 * time.Second,
		pingTimeoutThreshold: 3,
		tools:                newToolCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect performs the transport-level connection and the MCP handshake:
// initialize, then notifications/initialized (§4.5). It retries the
// handshake up to the configured attempt count; once the session reaches
// the Initialized phase it never automatically reconnects.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	already := c.initialized
	c.mu.Unlock()
	if already {
		return &ClientError{Reason: "client is already connected"}
	}

	c.sess = newSession(c.transport, c.logger, c.writeTimeout, c.readTimeout)
	c.registerHandlers()

	if err := c.sess.start(ctx); err != nil {
		return err
	}

	err := retryHandshake(ctx, c.handshakeAttempts, c.handshakeDelay, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, c.handshakeTimeout)
		defer cancel()
		return c.handshake(hctx)
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()

	if c.pingInterval > 0 {
		c.stopPing = make(chan struct{})
		go c.pingLoop()
	}

	return nil
}

func (c *Client) handshake(ctx context.Context) error {
	resultBs, err := c.sess.sendRequest(ctx, methodInitialize, initializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    c.capabilities,
		ClientInfo:      c.clientInfo,
	})
	if err != nil {
		return err
	}

	var result initializeResult
	if err := json.Unmarshal(resultBs, &result); err != nil {
		return &ProtocolError{Reason: "decode initialize result", Err: err}
	}

	if result.ProtocolVersion != protocolVersion {
		c.logger.Warn("server protocol version differs from client's",
			"client", protocolVersion, "server", result.ProtocolVersion,
			"server_is_newer", result.ProtocolVersion > protocolVersion)
	}

	c.mu.Lock()
	c.serverCapabilities = result.Capabilities
	c.serverInfo = result.ServerInfo
	c.serverProtoVersion = result.ProtocolVersion
	c.mu.Unlock()

	return c.sess.sendNotification(ctx, methodNotificationsInitialized, struct{}{})
}

func (c *Client) registerHandlers() {
	c.sess.registerNotificationHandler(methodNotificationsToolsListChanged, func(json.RawMessage) {
		c.tools.invalidate()
		if c.toolListWatcher != nil {
			c.toolListWatcher.OnToolListChanged()
		}
	})
	c.sess.registerNotificationHandler(methodNotificationsResourcesListChanged, func(json.RawMessage) {
		if c.resourceListWatcher != nil {
			c.resourceListWatcher.OnResourceListChanged()
		}
	})
	c.sess.registerNotificationHandler(methodNotificationsPromptsListChanged, func(json.RawMessage) {
		if c.promptListWatcher != nil {
			c.promptListWatcher.OnPromptListChanged()
		}
	})
	c.sess.registerNotificationHandler(methodNotificationsResourcesUpdated, func(raw json.RawMessage) {
		if c.resourceSubscribed == nil {
			return
		}
		var params struct {
			URI string `json:"uri"`
		}
		if err := json.Unmarshal(raw, &params); err != nil {
			c.logger.Warn("dropping malformed resources/updated notification", "err", err)
			return
		}
		c.resourceSubscribed.OnResourceUpdated(params.URI)
	})
	c.sess.registerNotificationHandler(methodNotificationsProgress, func(raw json.RawMessage) {
		if c.progressListener == nil {
			return
		}
		var params ProgressParams
		if err := json.Unmarshal(raw, &params); err != nil {
			c.logger.Warn("dropping malformed progress notification", "err", err)
			return
		}
		c.progressListener.OnProgress(params)
	})
	c.sess.registerNotificationHandler(methodNotificationsMessage, func(raw json.RawMessage) {
		if c.logReceiver == nil {
			return
		}
		var params LogParams
		if err := json.Unmarshal(raw, &params); err != nil {
			c.logger.Warn("dropping malformed log notification", "err", err)
			return
		}
		c.logReceiver.OnLog(params)
	})

	c.sess.registerRequestHandler(methodPing, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return struct{}{}, nil
	})
	c.sess.registerRequestHandler(MethodRootsList, func(ctx context.Context, _ json.RawMessage) (any, error) {
		if c.rootsListHandler != nil {
			roots, err := c.rootsListHandler.ListRoots(ctx)
			if err != nil {
				return nil, err
			}
			return struct {
				Roots []Root `json:"roots"`
			}{roots}, nil
		}
		return struct {
			Roots []Root `json:"roots"`
		}{c.ListRoots()}, nil
	})
	c.sess.registerRequestHandler(MethodSamplingCreateMessage, func(ctx context.Context, raw json.RawMessage) (any, error) {
		if c.samplingHandler == nil {
			return nil, &ClientError{Reason: "server requested sampling but no SamplingHandler is installed"}
		}
		var req CreateMessageRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, &ProtocolError{Reason: "decode createMessage request", Err: err}
		}
		return c.samplingHandler.CreateMessage(ctx, req)
	})
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	missed := 0
	for {
		select {
		case <-c.stopPing:
			return
		case <-c.sess.closeCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.pingInterval)
			_, err := c.sess.sendRequest(ctx, methodPing, struct{}{})
			cancel()
			if err != nil {
				missed++
				c.logger.Warn("ping failed", "missed", missed, "err", err)
				if missed >= c.pingTimeoutThreshold {
					c.logger.Error("ping threshold exceeded, closing session")
					_ = c.sess.close()
					return
				}
				continue
			}
			missed = 0
		}
	}
}

func (c *Client) requireInitialized() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return &ClientError{Reason: "client is not connected; call Connect first"}
	}
	return nil
}

func (c *Client) requireServerCapability(has bool, name string) error {
	if !has {
		return &ClientError{Reason: fmt.Sprintf("server did not advertise the %q capability", name)}
	}
	return nil
}

// ListTools retrieves the server's tool list and refreshes the local
// metadata cache (§4.6).
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	if err := c.requireInitialized(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	hasTools := c.serverCapabilities.Tools
	c.mu.Unlock()
	if err := c.requireServerCapability(hasTools, "tools"); err != nil {
		return nil, err
	}

	resultBs, err := c.sess.sendRequest(ctx, MethodToolsList, struct{}{})
	if err != nil {
		return nil, err
	}

	var result struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(resultBs, &result); err != nil {
		return nil, &ProtocolError{Reason: "decode tools/list result", Err: err}
	}

	c.tools.load(result.Tools)
	return result.Tools, nil
}

// ListToolsMetadata returns the lightweight name+description projection for
// every tool, serving from cache when already populated (§4.6).
func (c *Client) ListToolsMetadata(ctx context.Context) ([]ToolMetadata, error) {
	if !c.tools.isInitialized() {
		if _, err := c.ListTools(ctx); err != nil {
			return nil, err
		}
	}
	return c.tools.allMetadata(), nil
}

// ToolSchema returns the cached input schema for a tool by name, refreshing
// the cache first if it has never been populated.
func (c *Client) ToolSchema(ctx context.Context, name string) (json.RawMessage, error) {
	if !c.tools.isInitialized() {
		if _, err := c.ListTools(ctx); err != nil {
			return nil, err
		}
	}
	schema, ok := c.tools.schema(name)
	if !ok {
		return nil, &ClientError{Reason: fmt.Sprintf("unknown tool %q", name)}
	}
	return schema, nil
}

// CallTool invokes a tool by name with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (CallToolResult, error) {
	if err := c.requireInitialized(); err != nil {
		return CallToolResult{}, err
	}
	c.mu.Lock()
	hasTools := c.serverCapabilities.Tools
	c.mu.Unlock()
	if err := c.requireServerCapability(hasTools, "tools"); err != nil {
		return CallToolResult{}, err
	}

	resultBs, err := c.sess.sendRequest(ctx, MethodToolsCall, struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments,omitempty"`
	}{name, args})
	if err != nil {
		return CallToolResult{}, err
	}

	var result CallToolResult
	if err := json.Unmarshal(resultBs, &result); err != nil {
		return CallToolResult{}, &ProtocolError{Reason: "decode tools/call result", Err: err}
	}
	return result, nil
}

// CallToolWithTracking invokes a tool and, if the server returns an
// operation id alongside its result, carries it through for correlating
// progress notifications and cancellation (§9 Ambiguities: never synthesized
// when absent).
func (c *Client) CallToolWithTracking(ctx context.Context, name string, args map[string]any) (ToolCallTracking, error) {
	if err := c.requireInitialized(); err != nil {
		return ToolCallTracking{}, err
	}
	c.mu.Lock()
	hasTools := c.serverCapabilities.Tools
	c.mu.Unlock()
	if err := c.requireServerCapability(hasTools, "tools"); err != nil {
		return ToolCallTracking{}, err
	}

	resultBs, err := c.sess.sendRequest(ctx, MethodToolsCall, struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments,omitempty"`
	}{name, args})
	if err != nil {
		return ToolCallTracking{}, err
	}

	var wire struct {
		OperationID string `json:"operationId,omitempty"`
		CallToolResult
	}
	if err := json.Unmarshal(resultBs, &wire); err != nil {
		return ToolCallTracking{}, &ProtocolError{Reason: "decode tools/call result", Err: err}
	}
	return ToolCallTracking{OperationID: wire.OperationID, Result: wire.CallToolResult}, nil
}

// ListResources retrieves the server's resource list.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	if err := c.requireInitialized(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	has := c.serverCapabilities.Resources
	c.mu.Unlock()
	if err := c.requireServerCapability(has, "resources"); err != nil {
		return nil, err
	}

	resultBs, err := c.sess.sendRequest(ctx, MethodResourcesList, struct{}{})
	if err != nil {
		return nil, err
	}
	var result struct {
		Resources []Resource `json:"resources"`
	}
	if err := json.Unmarshal(resultBs, &result); err != nil {
		return nil, &ProtocolError{Reason: "decode resources/list result", Err: err}
	}
	return result.Resources, nil
}

// ListResourceTemplates retrieves the server's resource template list.
func (c *Client) ListResourceTemplates(ctx context.Context) ([]ResourceTemplate, error) {
	if err := c.requireInitialized(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	has := c.serverCapabilities.Resources
	c.mu.Unlock()
	if err := c.requireServerCapability(has, "resources"); err != nil {
		return nil, err
	}

	resultBs, err := c.sess.sendRequest(ctx, MethodResourcesTemplatesList, struct{}{})
	if err != nil {
		return nil, err
	}
	var result struct {
		ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
	}
	if err := json.Unmarshal(resultBs, &result); err != nil {
		return nil, &ProtocolError{Reason: "decode resources/templates/list result", Err: err}
	}
	return result.ResourceTemplates, nil
}

// ReadResource retrieves the contents of a resource by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) (ReadResourceResult, error) {
	if err := c.requireInitialized(); err != nil {
		return ReadResourceResult{}, err
	}
	c.mu.Lock()
	has := c.serverCapabilities.Resources
	c.mu.Unlock()
	if err := c.requireServerCapability(has, "resources"); err != nil {
		return ReadResourceResult{}, err
	}

	resultBs, err := c.sess.sendRequest(ctx, MethodResourcesRead, struct {
		URI string `json:"uri"`
	}{uri})
	if err != nil {
		return ReadResourceResult{}, err
	}
	var result ReadResourceResult
	if err := json.Unmarshal(resultBs, &result); err != nil {
		return ReadResourceResult{}, &ProtocolError{Reason: "decode resources/read result", Err: err}
	}
	return result, nil
}

// ReadResourceWithTemplate expands a URI template with params and reads the
// resulting concrete resource (§4.5).
func (c *Client) ReadResourceWithTemplate(ctx context.Context, template string, params map[string]string) (ReadResourceResult, error) {
	uri, err := expandResourceTemplate(template, params)
	if err != nil {
		return ReadResourceResult{}, err
	}
	return c.ReadResource(ctx, uri)
}

// SubscribeResource subscribes to change notifications for a resource.
func (c *Client) SubscribeResource(ctx context.Context, uri string) error {
	if err := c.requireInitialized(); err != nil {
		return err
	}
	c.mu.Lock()
	has := c.serverCapabilities.Resources
	c.mu.Unlock()
	if err := c.requireServerCapability(has, "resources"); err != nil {
		return err
	}

	_, err := c.sess.sendRequest(ctx, MethodResourcesSubscribe, struct {
		URI string `json:"uri"`
	}{uri})
	return err
}

// UnsubscribeResource cancels a resource subscription.
func (c *Client) UnsubscribeResource(ctx context.Context, uri string) error {
	if err := c.requireInitialized(); err != nil {
		return err
	}
	c.mu.Lock()
	has := c.serverCapabilities.Resources
	c.mu.Unlock()
	if err := c.requireServerCapability(has, "resources"); err != nil {
		return err
	}

	_, err := c.sess.sendRequest(ctx, MethodResourcesUnsubscribe, struct {
		URI string `json:"uri"`
	}{uri})
	return err
}

// ListPrompts retrieves the server's prompt list.
func (c *Client) ListPrompts(ctx context.Context) ([]Prompt, error) {
	if err := c.requireInitialized(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	has := c.serverCapabilities.Prompts
	c.mu.Unlock()
	if err := c.requireServerCapability(has, "prompts"); err != nil {
		return nil, err
	}

	resultBs, err := c.sess.sendRequest(ctx, MethodPromptsList, struct{}{})
	if err != nil {
		return nil, err
	}
	var result struct {
		Prompts []Prompt `json:"prompts"`
	}
	if err := json.Unmarshal(resultBs, &result); err != nil {
		return nil, &ProtocolError{Reason: "decode prompts/list result", Err: err}
	}
	return result.Prompts, nil
}

// GetPrompt retrieves a rendered prompt by name with the given arguments.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) (GetPromptResult, error) {
	if err := c.requireInitialized(); err != nil {
		return GetPromptResult{}, err
	}
	c.mu.Lock()
	has := c.serverCapabilities.Prompts
	c.mu.Unlock()
	if err := c.requireServerCapability(has, "prompts"); err != nil {
		return GetPromptResult{}, err
	}

	resultBs, err := c.sess.sendRequest(ctx, MethodPromptsGet, struct {
		Name      string            `json:"name"`
		Arguments map[string]string `json:"arguments,omitempty"`
	}{name, args})
	if err != nil {
		return GetPromptResult{}, err
	}
	var result GetPromptResult
	if err := json.Unmarshal(resultBs, &result); err != nil {
		return GetPromptResult{}, &ProtocolError{Reason: "decode prompts/get result", Err: err}
	}
	return result, nil
}

// AddRoot adds a root to the client's exposed root set and, if the client
// advertised roots.listChanged, notifies the server.
func (c *Client) AddRoot(ctx context.Context, root Root) error {
	c.rootsMu.Lock()
	c.roots = append(c.roots, root)
	c.rootsMu.Unlock()
	return c.notifyRootsChanged(ctx)
}

// RemoveRoot removes a root by URI from the client's exposed root set.
func (c *Client) RemoveRoot(ctx context.Context, uri string) error {
	c.rootsMu.Lock()
	filtered := c.roots[:0]
	for _, r := range c.roots {
		if r.URI != uri {
			filtered = append(filtered, r)
		}
	}
	c.roots = filtered
	c.rootsMu.Unlock()
	return c.notifyRootsChanged(ctx)
}

// ListRoots returns the client's current root set.
func (c *Client) ListRoots() []Root {
	c.rootsMu.Lock()
	defer c.rootsMu.Unlock()
	out := make([]Root, len(c.roots))
	copy(out, c.roots)
	return out
}

func (c *Client) notifyRootsChanged(ctx context.Context) error {
	if !c.capabilities.RootsListChanged || c.sess == nil {
		return nil
	}
	return c.sess.sendNotification(ctx, methodNotificationsRootsListChanged, struct{}{})
}

// HealthCheck retrieves server liveness and load information.
func (c *Client) HealthCheck(ctx context.Context) (ServerHealth, error) {
	if err := c.requireInitialized(); err != nil {
		return ServerHealth{}, err
	}

	resultBs, err := c.sess.sendRequest(ctx, MethodHealthCheck, struct{}{})
	if err != nil {
		return ServerHealth{}, err
	}
	var result ServerHealth
	if err := json.Unmarshal(resultBs, &result); err != nil {
		return ServerHealth{}, &ProtocolError{Reason: "decode health/check result", Err: err}
	}
	return result, nil
}

// SetLoggingLevel adjusts the server's minimum emitted log level. Unlike
// most typed methods, this is not gated on a server capability (§4.5).
func (c *Client) SetLoggingLevel(ctx context.Context, level LogLevel) error {
	if err := c.requireInitialized(); err != nil {
		return err
	}

	_, err := c.sess.sendRequest(ctx, MethodLoggingSetLevel, struct {
		Level string `json:"level"`
	}{level.String()})
	return err
}

// CancelOperation requests cancellation of a server-side operation
// identified by operationID, such as one returned by CallToolWithTracking.
// Not gated on a server capability (§4.5). The server's acknowledgment is
// ignored; the original tools/call still completes independently via its
// own response or timeout.
func (c *Client) CancelOperation(ctx context.Context, operationID string) error {
	if err := c.requireInitialized(); err != nil {
		return err
	}
	_, err := c.sess.sendRequest(ctx, MethodCancel, struct {
		ID string `json:"id"`
	}{operationID})
	return err
}

// ServerInfo returns the server's identifying metadata, populated once
// Connect succeeds.
func (c *Client) ServerInfo() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverInfo
}

// ServerCapabilities returns the capabilities the server advertised during
// the handshake.
func (c *Client) ServerCapabilities() ServerCapabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverCapabilities
}

// Close tears the session and transport down. Safe to call more than once.
func (c *Client) Close() error {
	if c.stopPing != nil {
		select {
		case <-c.stopPing:
		default:
			close(c.stopPing)
		}
	}
	if c.sess == nil {
		return nil
	}
	return c.sess.close()
}
