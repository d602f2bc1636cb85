package toolset

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/invopop/jsonschema"

	"github.com/wxtools/weather-server-go/mcp"
)

// ToolOption configures TypedTool behavior.
type ToolOption func(*toolConfig)

type toolConfig struct {
	description string
}

// WithDescription sets the tool description used in listings.
func WithDescription(desc string) ToolOption {
	return func(c *toolConfig) { c.description = desc }
}

// TypedTool builds a StaticTool whose input schema is reflected from the
// argument struct A (jsonschema struct tags carry descriptions, enums,
// defaults and bounds). The handler decodes arguments leniently; argument
// validation and defaulting beyond JSON shape is the tool function's concern.
func TypedTool[A any](name string, fn func(ctx context.Context, args A) (string, error), opts ...ToolOption) StaticTool {
	cfg := toolConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	desc := mcp.Tool{
		Name:        name,
		Description: cfg.description,
		InputSchema: reflectInputSchema[A](),
	}

	handler := func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var a A
		if len(req.Arguments) > 0 {
			if err := json.Unmarshal(req.Arguments, &a); err != nil {
				return nil, fmt.Errorf("invalid arguments for tool %s: %w", name, err)
			}
		}
		text, err := fn(ctx, a)
		if err != nil {
			return nil, err
		}
		return TextResult(text), nil
	}

	return StaticTool{Descriptor: desc, Handler: handler}
}

// reflectInputSchema reflects a Go type A into a jsonschema.Schema and
// converts it to the simplified mcp.ToolInputSchema. Anonymous struct types
// cannot be reflected (the reflector resolves an expanded struct through its
// definition name, and an unnamed type has none) and fall back to an empty
// object schema instead of panicking inside the reflector.
func reflectInputSchema[A any]() mcp.ToolInputSchema {
	t := reflect.TypeFor[A]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || t.Name() == "" {
		return mcp.ToolInputSchema{Type: "object", Properties: map[string]mcp.SchemaProperty{}}
	}

	r := &jsonschema.Reflector{
		DoNotReference:            true, // inline defs
		ExpandedStruct:            true, // put struct at root
		AllowAdditionalProperties: true,
	}
	s := r.Reflect(new(A))

	// Only object schemas map onto the MCP tool input shape.
	if s == nil || s.Type != "object" {
		return mcp.ToolInputSchema{Type: "object", Properties: map[string]mcp.SchemaProperty{}}
	}

	props := make(map[string]mcp.SchemaProperty)
	if s.Properties != nil {
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			props[el.Key] = toSchemaProperty(el.Value)
		}
	}
	var required []string
	if len(s.Required) > 0 {
		required = append(required, s.Required...)
	}

	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// toSchemaProperty recursively maps a jsonschema.Schema node to the simplified
// MCP property shape.
func toSchemaProperty(s *jsonschema.Schema) mcp.SchemaProperty {
	if s == nil {
		return mcp.SchemaProperty{}
	}
	p := mcp.SchemaProperty{
		Type:        s.Type,
		Description: s.Description,
		Default:     s.Default,
	}
	if len(s.Enum) > 0 {
		p.Enum = s.Enum
	}
	p.Minimum = numberPtr(s.Minimum)
	p.Maximum = numberPtr(s.Maximum)
	if s.Type == "array" && s.Items != nil {
		item := toSchemaProperty(s.Items)
		p.Items = &item
	}
	if s.Type == "object" && s.Properties != nil {
		m := make(map[string]mcp.SchemaProperty, s.Properties.Len())
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			m[el.Key] = toSchemaProperty(el.Value)
		}
		p.Properties = m
	}
	return p
}

func numberPtr(n json.Number) *float64 {
	if n == "" {
		return nil
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return nil
	}
	return &f
}
