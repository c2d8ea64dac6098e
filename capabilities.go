package mcp

import "encoding/json"

// ClientCapabilities are the capabilities a client advertises during the
// handshake. All three are plain booleans at the API surface; on the wire,
// Roots is nested under a "roots" object whose presence implies the
// capability and whose "listChanged" field defaults to false (§3).
type ClientCapabilities struct {
	Roots            bool
	RootsListChanged bool
	Sampling         bool
}

type clientCapabilitiesWire struct {
	Roots *struct {
		ListChanged bool `json:"listChanged,omitempty"`
	} `json:"roots,omitempty"`
	Sampling *struct{} `json:"sampling,omitempty"`
}

// MarshalJSON implements json.Marshaler, nesting Roots/RootsListChanged
// under the "roots" key and Sampling under an empty "sampling" object.
func (c ClientCapabilities) MarshalJSON() ([]byte, error) {
	var w clientCapabilitiesWire
	if c.Roots {
		w.Roots = &struct {
			ListChanged bool `json:"listChanged,omitempty"`
		}{ListChanged: c.RootsListChanged}
	}
	if c.Sampling {
		w.Sampling = &struct{}{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ClientCapabilities) UnmarshalJSON(data []byte) error {
	var w clientCapabilitiesWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = ClientCapabilities{}
	if w.Roots != nil {
		c.Roots = true
		c.RootsListChanged = w.Roots.ListChanged
	}
	if w.Sampling != nil {
		c.Sampling = true
	}
	return nil
}

// ServerCapabilities are the capabilities a server advertises in its
// initialize response. Frozen for the connection's lifetime once received
// (§3 invariants).
type ServerCapabilities struct {
	Tools                bool
	ToolsListChanged     bool
	Resources            bool
	ResourcesListChanged bool
	ResourcesSubscribe   bool
	Prompts              bool
	PromptsListChanged   bool
	Sampling             bool
	Logging              bool
}

type serverCapabilitiesWire struct {
	Tools *struct {
		ListChanged bool `json:"listChanged,omitempty"`
	} `json:"tools,omitempty"`
	Resources *struct {
		ListChanged bool `json:"listChanged,omitempty"`
		Subscribe   bool `json:"subscribe,omitempty"`
	} `json:"resources,omitempty"`
	Prompts *struct {
		ListChanged bool `json:"listChanged,omitempty"`
	} `json:"prompts,omitempty"`
	Sampling *struct{} `json:"sampling,omitempty"`
	Logging  *struct{} `json:"logging,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s ServerCapabilities) MarshalJSON() ([]byte, error) {
	var w serverCapabilitiesWire
	if s.Tools {
		w.Tools = &struct {
			ListChanged bool `json:"listChanged,omitempty"`
		}{ListChanged: s.ToolsListChanged}
	}
	if s.Resources {
		w.Resources = &struct {
			ListChanged bool `json:"listChanged,omitempty"`
			Subscribe   bool `json:"subscribe,omitempty"`
		}{ListChanged: s.ResourcesListChanged, Subscribe: s.ResourcesSubscribe}
	}
	if s.Prompts {
		w.Prompts = &struct {
			ListChanged bool `json:"listChanged,omitempty"`
		}{ListChanged: s.PromptsListChanged}
	}
	if s.Sampling {
		w.Sampling = &struct{}{}
	}
	if s.Logging {
		w.Logging = &struct{}{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *ServerCapabilities) UnmarshalJSON(data []byte) error {
	var w serverCapabilitiesWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = ServerCapabilities{}
	if w.Tools != nil {
		s.Tools = true
		s.ToolsListChanged = w.Tools.ListChanged
	}
	if w.Resources != nil {
		s.Resources = true
		s.ResourcesListChanged = w.Resources.ListChanged
		s.ResourcesSubscribe = w.Resources.Subscribe
	}
	if w.Prompts != nil {
		s.Prompts = true
		s.PromptsListChanged = w.Prompts.ListChanged
	}
	if w.Sampling != nil {
		s.Sampling = true
	}
	if w.Logging != nil {
		s.Logging = true
	}
	return nil
}
