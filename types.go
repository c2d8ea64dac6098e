package mcp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Info contains identifying metadata about a server or client instance.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Role represents the role of a message sender in a conversation.
type Role string

// Role values.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentType identifies which concrete variant a Content value is.
type ContentType string

// ContentType values.
const (
	ContentTypeText     ContentType = "text"
	ContentTypeImage    ContentType = "image"
	ContentTypeAudio    ContentType = "audio"
	ContentTypeResource ContentType = "resource"
)

// Annotations carries client hints about how to use or display a Content value.
type Annotations struct {
	Audience []Role `json:"audience,omitempty"`
	Priority int    `json:"priority,omitempty"`
}

// Content is the tagged union of message content variants exchanged in
// prompts, tool results, and sampling messages. The wire discriminator is the
// "type" field; decoding an unknown tag fails deterministically rather than
// silently defaulting to a variant (§9 Design Notes).
type Content interface {
	contentType() ContentType
}

// TextContent is the Content variant carrying plain text.
type TextContent struct {
	Text        string       `json:"text"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

func (TextContent) contentType() ContentType { return ContentTypeText }

// MarshalJSON implements json.Marshaler, emitting the "type" discriminator.
func (t TextContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        ContentType  `json:"type"`
		Text        string       `json:"text"`
		Annotations *Annotations `json:"annotations,omitempty"`
	}{ContentTypeText, t.Text, t.Annotations})
}

// ImageContent is the Content variant carrying binary image or audio data,
// either inline (Data, base64) or by reference (URL). Kind distinguishes
// ContentTypeImage from ContentTypeAudio on the wire.
type ImageContent struct {
	Kind        ContentType
	URL         string       `json:"url,omitempty"`
	Data        string       `json:"data,omitempty"`
	MimeType    string       `json:"mimeType,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

func (i ImageContent) contentType() ContentType {
	if i.Kind == ContentTypeAudio {
		return ContentTypeAudio
	}
	return ContentTypeImage
}

// MarshalJSON implements json.Marshaler, emitting the "type" discriminator.
func (i ImageContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        ContentType  `json:"type"`
		URL         string       `json:"url,omitempty"`
		Data        string       `json:"data,omitempty"`
		MimeType    string       `json:"mimeType,omitempty"`
		Annotations *Annotations `json:"annotations,omitempty"`
	}{i.contentType(), i.URL, i.Data, i.MimeType, i.Annotations})
}

// ResourceRefContent is the Content variant embedding a resource's identity
// and, optionally, its inline contents.
type ResourceRefContent struct {
	URI         string       `json:"uri"`
	Text        string       `json:"text,omitempty"`
	Blob        string       `json:"blob,omitempty"`
	MimeType    string       `json:"mimeType,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

func (ResourceRefContent) contentType() ContentType { return ContentTypeResource }

// MarshalJSON implements json.Marshaler, emitting the "type" discriminator.
func (r ResourceRefContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        ContentType  `json:"type"`
		URI         string       `json:"uri"`
		Text        string       `json:"text,omitempty"`
		Blob        string       `json:"blob,omitempty"`
		MimeType    string       `json:"mimeType,omitempty"`
		Annotations *Annotations `json:"annotations,omitempty"`
	}{r.contentType(), r.URI, r.Text, r.Blob, r.MimeType, r.Annotations})
}

// decodeContent decodes a single Content value from its tagged JSON
// representation, returning an error for any tag this package doesn't know.
func decodeContent(raw json.RawMessage) (Content, error) {
	var tag struct {
		Type ContentType `json:"type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("decode content tag: %w", err)
	}

	switch tag.Type {
	case ContentTypeText:
		var v struct {
			Text        string       `json:"text"`
			Annotations *Annotations `json:"annotations,omitempty"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode text content: %w", err)
		}
		return TextContent{Text: v.Text, Annotations: v.Annotations}, nil
	case ContentTypeImage, ContentTypeAudio:
		var v struct {
			URL         string       `json:"url,omitempty"`
			Data        string       `json:"data,omitempty"`
			MimeType    string       `json:"mimeType,omitempty"`
			Annotations *Annotations `json:"annotations,omitempty"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode image/audio content: %w", err)
		}
		return ImageContent{Kind: tag.Type, URL: v.URL, Data: v.Data, MimeType: v.MimeType, Annotations: v.Annotations}, nil
	case ContentTypeResource:
		var v struct {
			URI         string       `json:"uri"`
			Text        string       `json:"text,omitempty"`
			Blob        string       `json:"blob,omitempty"`
			MimeType    string       `json:"mimeType,omitempty"`
			Annotations *Annotations `json:"annotations,omitempty"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode resource content: %w", err)
		}
		return ResourceRefContent{URI: v.URI, Text: v.Text, Blob: v.Blob, MimeType: v.MimeType, Annotations: v.Annotations}, nil
	default:
		return nil, fmt.Errorf("unknown content type %q", tag.Type)
	}
}

// ContentList is a slice of Content values with a custom decoder that
// dispatches each element on its "type" tag. Marshaling delegates to each
// element's own MarshalJSON.
type ContentList []Content

// UnmarshalJSON implements json.Unmarshaler.
func (cl *ContentList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	out := make(ContentList, 0, len(raws))
	for _, raw := range raws {
		c, err := decodeContent(raw)
		if err != nil {
			return err
		}
		out = append(out, c)
	}
	*cl = out
	return nil
}

// Tool describes a callable tool exposed by the server.
type Tool struct {
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	InputSchema          json.RawMessage `json:"inputSchema,omitempty"`
	SupportsProgress     bool            `json:"supportsProgress,omitempty"`
	SupportsCancellation bool            `json:"supportsCancellation,omitempty"`
	Metadata             json.RawMessage `json:"metadata,omitempty"`
}

// ToolMetadata is a token-efficient projection of Tool carrying only the
// name and description, used for listings where the full input schema is
// unnecessary (§4.6).
type ToolMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// NewToolMetadata projects a Tool down to its ToolMetadata.
func NewToolMetadata(t Tool) ToolMetadata {
	return ToolMetadata{Name: t.Name, Description: t.Description}
}

// Resource describes a content resource the server can serve.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	URITemplate string `json:"uriTemplate,omitempty"`
}

// ResourceTemplate describes a parameterized family of resource URIs.
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ResourceContentInfo is one item of a ReadResourceResult: either textual or
// binary (base64) content for a single URI.
type ResourceContentInfo struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// ReadResourceResult is the result of resources/read.
type ReadResourceResult struct {
	Contents []ResourceContentInfo `json:"contents"`
}

// PromptArgument describes one named argument a Prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Default     string `json:"default,omitempty"`
}

// Prompt describes a named, templated prompt the server can render.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptMessage is one rendered message of a GetPromptResult.
type PromptMessage struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// MarshalJSON implements json.Marshaler since Content is an interface field.
func (p PromptMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Role    Role    `json:"role"`
		Content Content `json:"content"`
	}{p.Role, p.Content})
}

// UnmarshalJSON implements json.Unmarshaler, dispatching Content on its tag.
func (p *PromptMessage) UnmarshalJSON(data []byte) error {
	var v struct {
		Role    Role            `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	c, err := decodeContent(v.Content)
	if err != nil {
		return err
	}
	p.Role = v.Role
	p.Content = c
	return nil
}

// GetPromptResult is the result of prompts/get.
type GetPromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// Root describes a top-level entry point a client exposes to the server.
type Root struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// LogLevel is the severity of a logging notification; its integer value is
// the level's index in the list below.
type LogLevel int

// LogLevel values, lowest-severity first.
const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelNotice
	LogLevelWarning
	LogLevelError
	LogLevelCritical
	LogLevelAlert
	LogLevelEmergency
)

// String implements fmt.Stringer.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelNotice:
		return "notice"
	case LogLevelWarning:
		return "warning"
	case LogLevelError:
		return "error"
	case LogLevelCritical:
		return "critical"
	case LogLevelAlert:
		return "alert"
	case LogLevelEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// LogParams is the payload of a "notifications/message" logging notification.
type LogParams struct {
	Level   LogLevel        `json:"level"`
	Message string          `json:"message,omitempty"`
	Logger  string          `json:"logger,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ProgressParams is the payload of a "notifications/progress" notification.
// The source spells the correlation field inconsistently; it is accepted
// under both spellings on decode and always emitted as "requestId" on
// encode.
type ProgressParams struct {
	RequestID MustString `json:"requestId"`
	Progress  float64    `json:"progress"`
	Total     float64    `json:"total,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler, accepting both requestId and
// request_id spellings (§4.5, §9 Ambiguities).
func (p *ProgressParams) UnmarshalJSON(data []byte) error {
	var v struct {
		RequestID  MustString `json:"requestId"`
		RequestID2 MustString `json:"request_id"`
		Progress   float64    `json:"progress"`
		Total      float64    `json:"total,omitempty"`
		Message    string     `json:"message,omitempty"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	p.RequestID = v.RequestID
	if p.RequestID == "" {
		p.RequestID = v.RequestID2
	}
	p.Progress = v.Progress
	p.Total = v.Total
	p.Message = v.Message
	return nil
}

// ParamsMeta carries optional request metadata, currently just the progress
// tracking token.
type ParamsMeta struct {
	ProgressToken MustString `json:"progressToken,omitempty"`
}

// SamplingModelHint is a named hint guiding server model selection.
type SamplingModelHint struct {
	Name string `json:"name,omitempty"`
}

// SamplingModelPreferences guides server-side model selection by relative
// priority of cost, speed, and intelligence, plus named hints.
type SamplingModelPreferences struct {
	Hints                []SamplingModelHint `json:"hints,omitempty"`
	CostPriority         float64             `json:"costPriority,omitempty"`
	SpeedPriority        float64             `json:"speedPriority,omitempty"`
	IntelligencePriority float64             `json:"intelligencePriority,omitempty"`
}

// SamplingMessage is one turn of conversation history passed to createMessage.
type SamplingMessage struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// MarshalJSON implements json.Marshaler since Content is an interface field.
func (m SamplingMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Role    Role    `json:"role"`
		Content Content `json:"content"`
	}{m.Role, m.Content})
}

// UnmarshalJSON implements json.Unmarshaler, dispatching Content on its tag.
func (m *SamplingMessage) UnmarshalJSON(data []byte) error {
	var v struct {
		Role    Role            `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	c, err := decodeContent(v.Content)
	if err != nil {
		return err
	}
	m.Role = v.Role
	m.Content = c
	return nil
}

// CreateMessageRequest is the params of sampling/createMessage, sent by the
// server and answered by the client's SamplingHandler (§4.5, §9 carried
// sampling direction).
type CreateMessageRequest struct {
	Messages       []SamplingMessage        `json:"messages"`
	ModelPrefs     SamplingModelPreferences `json:"modelPreferences,omitempty"`
	SystemPrompt   string                   `json:"systemPrompt,omitempty"`
	IncludeContext string                   `json:"includeContext,omitempty"`
	MaxTokens      int                      `json:"maxTokens,omitempty"`
	Temperature    float64                  `json:"temperature,omitempty"`
	StopSequences  []string                 `json:"stopSequences,omitempty"`
	Metadata       map[string]any           `json:"metadata,omitempty"`
}

// CreateMessageResult is the result of sampling/createMessage.
type CreateMessageResult struct {
	Model      string  `json:"model"`
	StopReason string  `json:"stopReason,omitempty"`
	Role       Role    `json:"role"`
	Content    Content `json:"content"`
}

// MarshalJSON implements json.Marshaler since Content is an interface field.
func (r CreateMessageResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Model      string  `json:"model"`
		StopReason string  `json:"stopReason,omitempty"`
		Role       Role    `json:"role"`
		Content    Content `json:"content"`
	}{r.Model, r.StopReason, r.Role, r.Content})
}

// UnmarshalJSON implements json.Unmarshaler, dispatching Content on its tag.
func (r *CreateMessageResult) UnmarshalJSON(data []byte) error {
	var v struct {
		Model      string          `json:"model"`
		StopReason string          `json:"stopReason,omitempty"`
		Role       Role            `json:"role"`
		Content    json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	c, err := decodeContent(v.Content)
	if err != nil {
		return err
	}
	r.Model = v.Model
	r.StopReason = v.StopReason
	r.Role = v.Role
	r.Content = c
	return nil
}

// ServerHealth reports server liveness and load, as returned by health/check.
// The wire form carries a flat "uptimeSeconds" field; Uptime is derived from
// it on decode and re-derived on encode.
type ServerHealth struct {
	IsRunning           bool           `json:"isRunning"`
	ConnectedSessions   int            `json:"connectedSessions"`
	RegisteredTools     int            `json:"registeredTools"`
	RegisteredResources int            `json:"registeredResources"`
	RegisteredPrompts   int            `json:"registeredPrompts"`
	StartTime           time.Time      `json:"startTime"`
	Uptime              time.Duration  `json:"-"`
	Metrics             map[string]any `json:"metrics,omitempty"`
}

type serverHealthWire struct {
	IsRunning           bool           `json:"isRunning"`
	ConnectedSessions   int            `json:"connectedSessions"`
	RegisteredTools     int            `json:"registeredTools"`
	RegisteredResources int            `json:"registeredResources"`
	RegisteredPrompts   int            `json:"registeredPrompts"`
	StartTime           time.Time      `json:"startTime"`
	UptimeSeconds       float64        `json:"uptimeSeconds"`
	Metrics             map[string]any `json:"metrics,omitempty"`
}

// MarshalJSON implements json.Marshaler, deriving uptimeSeconds from Uptime.
func (h ServerHealth) MarshalJSON() ([]byte, error) {
	return json.Marshal(serverHealthWire{
		IsRunning:           h.IsRunning,
		ConnectedSessions:   h.ConnectedSessions,
		RegisteredTools:     h.RegisteredTools,
		RegisteredResources: h.RegisteredResources,
		RegisteredPrompts:   h.RegisteredPrompts,
		StartTime:           h.StartTime,
		UptimeSeconds:       h.Uptime.Seconds(),
		Metrics:             h.Metrics,
	})
}

// UnmarshalJSON implements json.Unmarshaler, deriving Uptime from uptimeSeconds.
func (h *ServerHealth) UnmarshalJSON(data []byte) error {
	var w serverHealthWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	h.IsRunning = w.IsRunning
	h.ConnectedSessions = w.ConnectedSessions
	h.RegisteredTools = w.RegisteredTools
	h.RegisteredResources = w.RegisteredResources
	h.RegisteredPrompts = w.RegisteredPrompts
	h.StartTime = w.StartTime
	h.Uptime = time.Duration(w.UptimeSeconds * float64(time.Second))
	h.Metrics = w.Metrics
	return nil
}

// CallToolResult is the result of tools/call.
type CallToolResult struct {
	Content     ContentList `json:"content"`
	IsStreaming bool        `json:"isStreaming,omitempty"`
	IsError     bool        `json:"isError,omitempty"`
}

// ToolCallTracking pairs a CallToolResult with the server-minted operation ID
// used to correlate progress notifications and cancellation for a tracked
// tools/call. OperationID is absent, never synthesized, when the server
// doesn't return one (§9 Ambiguities).
type ToolCallTracking struct {
	OperationID string
	Result      CallToolResult
}
