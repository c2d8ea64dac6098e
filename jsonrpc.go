package mcp

import (
	"encoding/json"
	"fmt"
)

// JSONRPCVersion is the only protocol tag this package emits or accepts.
const JSONRPCVersion = "2.0"

// MustString enforces string representation for fields that the JSON-RPC
// wire format allows to be either a string or a number, such as request IDs
// and progress tokens. It converts numeric input to its decimal string form
// on decode and always encodes as a JSON string.
type MustString string

// UnmarshalJSON implements json.Unmarshaler, accepting either a JSON string
// or a JSON number.
func (m *MustString) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch v := v.(type) {
	case string:
		*m = MustString(v)
	case float64:
		*m = MustString(fmt.Sprintf("%d", int64(v)))
	default:
		return fmt.Errorf("invalid id/token type: %T", v)
	}

	return nil
}

// MarshalJSON implements json.Marshaler, always encoding as a JSON string.
func (m MustString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(m))
}

// JSONRPCMessage represents a JSON-RPC 2.0 message. Exactly one of the three
// classifications holds, derived from which fields are populated rather than
// transmitted directly:
//   - Request: JSONRPC, ID, and Method are set.
//   - Notification: JSONRPC and Method are set, ID is absent.
//   - Response: JSONRPC and ID are set, and either Result or Error is set.
type JSONRPCMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      MustString      `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// IsNotification reports whether msg has no ID and therefore expects no
// response.
func (msg JSONRPCMessage) IsNotification() bool {
	return msg.ID == "" && msg.Method != ""
}

// IsRequest reports whether msg carries both an ID and a method, i.e. is a
// message that expects a response.
func (msg JSONRPCMessage) IsRequest() bool {
	return msg.ID != "" && msg.Method != ""
}

// IsResponse reports whether msg is a response to a previously sent request:
// it carries an ID and no method, with either a result or an error.
func (msg JSONRPCMessage) IsResponse() bool {
	return msg.ID != "" && msg.Method == "" && (msg.Result != nil || msg.Error != nil)
}

// JSONRPCError represents the error object of a JSON-RPC 2.0 response.
type JSONRPCError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Error implements the error interface.
func (j JSONRPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s (data: %v)", j.Code, j.Message, j.Data)
}

// Standard JSON-RPC 2.0 error codes, and the fixed messages this client
// attaches to the subset it originates.
const (
	jsonRPCParseErrorCode     = -32700
	jsonRPCInvalidRequestCode = -32600
	jsonRPCMethodNotFoundCode = -32601
	jsonRPCInvalidParamsCode  = -32602
	jsonRPCInternalErrorCode  = -32603

	errMsgUnsupportedProtocolVersion = "Unsupported protocol version"
)

type initializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Info               `json:"clientInfo"`
}

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Info               `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

type notificationsCancelledParams struct {
	RequestID string `json:"requestId"`
	Reason    string `json:"reason,omitempty"`
}

// MCP method and notification names used on the wire. Unexported names are
// used only inside the package (handshake, liveness, cancellation, and
// notification dispatch); exported names are the ones a caller may see echoed
// in logs or tests.
const (
	methodPing       = "ping"
	methodInitialize = "initialize"

	// MethodPromptsList retrieves the list of available prompts.
	MethodPromptsList = "prompts/list"
	// MethodPromptsGet retrieves a specific prompt by name.
	MethodPromptsGet = "prompts/get"

	// MethodResourcesList retrieves the list of available resources.
	MethodResourcesList = "resources/list"
	// MethodResourcesRead retrieves the contents of a resource.
	MethodResourcesRead = "resources/read"
	// MethodResourcesTemplatesList retrieves the list of resource templates.
	MethodResourcesTemplatesList = "resources/templates/list"
	// MethodResourcesSubscribe subscribes to updates for a resource.
	MethodResourcesSubscribe = "resources/subscribe"
	// MethodResourcesUnsubscribe cancels a resource subscription.
	MethodResourcesUnsubscribe = "resources/unsubscribe"

	// MethodToolsList retrieves the list of available tools.
	MethodToolsList = "tools/list"
	// MethodToolsCall invokes a tool.
	MethodToolsCall = "tools/call"

	// MethodRootsList is sent by the server to request the client's roots.
	MethodRootsList = "roots/list"
	// MethodSamplingCreateMessage is sent by the server to request a sampled message.
	MethodSamplingCreateMessage = "sampling/createMessage"

	// MethodCompletionComplete requests completion suggestions.
	MethodCompletionComplete = "completion/complete"

	// MethodLoggingSetLevel adjusts the server's minimum emitted log level.
	MethodLoggingSetLevel = "logging/setLevel"

	// MethodHealthCheck retrieves server health/status information.
	MethodHealthCheck = "health/check"

	// MethodCancel requests cancellation of a server-side operation.
	MethodCancel = "cancel"

	methodNotificationsInitialized          = "notifications/initialized"
	methodNotificationsCancelled            = "notifications/cancelled"
	methodNotificationsPromptsListChanged   = "notifications/prompts/list_changed"
	methodNotificationsResourcesListChanged = "notifications/resources/list_changed"
	methodNotificationsResourcesUpdated     = "notifications/resources/updated"
	methodNotificationsToolsListChanged     = "notifications/tools/list_changed"
	methodNotificationsRootsListChanged     = "notifications/roots/list_changed"
	methodNotificationsProgress             = "notifications/progress"
	methodNotificationsMessage              = "notifications/message"
	methodNotificationsSamplingResponse     = "sampling/response"

	userCancelledReason = "User requested cancellation"

	// protocolVersion is the fixed MCP protocol version this client speaks (§4.5).
	protocolVersion = "2024-11-05"
)
