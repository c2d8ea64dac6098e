package mcp

import (
	"encoding/json"
	"testing"
)

func TestClientCapabilitiesMarshalNestsRoots(t *testing.T) {
	c := ClientCapabilities{Roots: true, RootsListChanged: true}
	bs, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(bs, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	roots, ok := wire["roots"].(map[string]any)
	if !ok {
		t.Fatalf("roots field missing or wrong shape: %v", wire["roots"])
	}
	if roots["listChanged"] != true {
		t.Errorf("roots.listChanged = %v, want true", roots["listChanged"])
	}
	if _, ok := wire["sampling"]; ok {
		t.Error("sampling should be absent when not enabled")
	}
}

func TestClientCapabilitiesUnmarshalPresenceImpliesCapability(t *testing.T) {
	raw := `{"roots": {}, "sampling": {}}`

	var c ClientCapabilities
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !c.Roots {
		t.Error("expected Roots to be true when the roots key is present")
	}
	if c.RootsListChanged {
		t.Error("expected RootsListChanged to default to false")
	}
	if !c.Sampling {
		t.Error("expected Sampling to be true when the sampling key is present")
	}
}

func TestClientCapabilitiesAbsenceImpliesNoCapability(t *testing.T) {
	var c ClientCapabilities
	if err := json.Unmarshal([]byte(`{}`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.Roots || c.Sampling {
		t.Errorf("expected no capabilities, got %+v", c)
	}
}

func TestServerCapabilitiesRoundTrip(t *testing.T) {
	want := ServerCapabilities{
		Tools:              true,
		ToolsListChanged:   true,
		Resources:          true,
		ResourcesSubscribe: true,
		Logging:            true,
	}

	bs, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got ServerCapabilities
	if err := json.Unmarshal(bs, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}
