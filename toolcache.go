package mcp

import (
	"encoding/json"
	"sort"
	"sync"
)

// toolCache holds the tool list most recently returned by the server,
// keyed by name (§4.6). It decouples the lightweight name+description
// projection callers usually want from the full schema, which is
// considerably larger on the wire.
type toolCache struct {
	mu          sync.RWMutex
	tools       map[string]Tool
	initialized bool
}

func newToolCache() *toolCache {
	return &toolCache{tools: make(map[string]Tool)}
}

// load replaces the cache's contents wholesale, as happens after a fresh
// tools/list round trip.
func (c *toolCache) load(tools []Tool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tools = make(map[string]Tool, len(tools))
	for _, t := range tools {
		c.tools[t.Name] = t
	}
	c.initialized = true
}

// allMetadata returns the name+description projection of every cached tool,
// sorted by name for deterministic output.
func (c *toolCache) allMetadata() []ToolMetadata {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]ToolMetadata, 0, len(c.tools))
	for _, t := range c.tools {
		out = append(out, NewToolMetadata(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// metadata returns the name+description projection for one tool.
func (c *toolCache) metadata(name string) (ToolMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tools[name]
	if !ok {
		return ToolMetadata{}, false
	}
	return NewToolMetadata(t), true
}

// schema returns the full input schema for one tool, the expensive payload
// allMetadata deliberately omits.
func (c *toolCache) schema(name string) (json.RawMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tools[name]
	if !ok {
		return nil, false
	}
	return t.InputSchema, true
}

func (c *toolCache) hasTool(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tools[name]
	return ok
}

func (c *toolCache) count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tools)
}

func (c *toolCache) toolNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.tools))
	for name := range c.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *toolCache) isInitialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

// invalidate clears the cache, forcing the next metadata lookup to trigger a
// fresh tools/list round trip.
func (c *toolCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools = make(map[string]Tool)
	c.initialized = false
}
