package mcp

import (
	"encoding/json"
	"testing"
)

func TestMustStringUnmarshalsStringAndNumber(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want MustString
	}{
		{"string", `"abc"`, "abc"},
		{"integer", `42`, "42"},
		{"negative integer", `-7`, "-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m MustString
			if err := json.Unmarshal([]byte(tt.in), &m); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if m != tt.want {
				t.Errorf("got %q, want %q", m, tt.want)
			}
		})
	}
}

func TestMustStringUnmarshalRejectsOtherTypes(t *testing.T) {
	var m MustString
	if err := json.Unmarshal([]byte(`true`), &m); err == nil {
		t.Fatal("expected error unmarshaling a bool into MustString")
	}
}

func TestMustStringMarshalAlwaysProducesAString(t *testing.T) {
	m := MustString("7")
	bs, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(bs) != `"7"` {
		t.Errorf("got %s, want \"7\"", bs)
	}
}

func TestJSONRPCMessageClassification(t *testing.T) {
	tests := []struct {
		name             string
		msg              JSONRPCMessage
		wantNotification bool
		wantRequest      bool
		wantResponse     bool
	}{
		{
			name:        "request",
			msg:         JSONRPCMessage{JSONRPC: JSONRPCVersion, ID: "1", Method: "tools/list"},
			wantRequest: true,
		},
		{
			name:             "notification",
			msg:              JSONRPCMessage{JSONRPC: JSONRPCVersion, Method: "notifications/initialized"},
			wantNotification: true,
		},
		{
			name:         "response with result",
			msg:          JSONRPCMessage{JSONRPC: JSONRPCVersion, ID: "1", Result: json.RawMessage(`{}`)},
			wantResponse: true,
		},
		{
			name:         "response with error",
			msg:          JSONRPCMessage{JSONRPC: JSONRPCVersion, ID: "1", Error: &JSONRPCError{Code: -32000, Message: "boom"}},
			wantResponse: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.IsNotification(); got != tt.wantNotification {
				t.Errorf("IsNotification() = %v, want %v", got, tt.wantNotification)
			}
			if got := tt.msg.IsRequest(); got != tt.wantRequest {
				t.Errorf("IsRequest() = %v, want %v", got, tt.wantRequest)
			}
			if got := tt.msg.IsResponse(); got != tt.wantResponse {
				t.Errorf("IsResponse() = %v, want %v", got, tt.wantResponse)
			}
		})
	}
}
