package toolset

import (
	"context"
	"fmt"

	"github.com/wxtools/weather-server-go/mcp"
)

// ToolHandler is the function signature used to handle a tool invocation.
type ToolHandler func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error)

// StaticTool pairs an MCP tool descriptor with its handler.
type StaticTool struct {
	Descriptor mcp.Tool
	Handler    ToolHandler
}

// Registry is an ordered collection of tools. It is immutable after
// construction, so it is safe to share without locking.
type Registry struct {
	tools    []mcp.Tool
	handlers map[string]ToolHandler
}

// NewRegistry builds a registry from the given tool definitions. Registration
// order is preserved in listings. Duplicate names are a construction error.
func NewRegistry(defs ...StaticTool) (*Registry, error) {
	r := &Registry{
		tools:    make([]mcp.Tool, 0, len(defs)),
		handlers: make(map[string]ToolHandler, len(defs)),
	}
	for _, d := range defs {
		name := d.Descriptor.Name
		if name == "" {
			return nil, fmt.Errorf("tool registered without a name")
		}
		if _, exists := r.handlers[name]; exists {
			return nil, fmt.Errorf("duplicate tool name: %s", name)
		}
		r.tools = append(r.tools, d.Descriptor)
		r.handlers[name] = d.Handler
	}
	return r, nil
}

// Tools returns the tool descriptors in registration order. The returned slice
// is a copy; callers may not mutate registry state through it.
func (r *Registry) Tools() []mcp.Tool {
	out := make([]mcp.Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Handler resolves a tool handler by name.
func (r *Registry) Handler(name string) (ToolHandler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }

// TextResult wraps a display string as a single-text-block tool result.
func TextResult(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: s}}}
}
