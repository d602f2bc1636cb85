package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/wxtools/weather-server-go/internal/jsonrpc"
	"github.com/wxtools/weather-server-go/mcp"
	"github.com/wxtools/weather-server-go/toolset"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	type echoArgs struct {
		Message string `json:"message"`
	}
	type boomArgs struct{}

	registry, err := toolset.NewRegistry(
		toolset.TypedTool("echo", func(ctx context.Context, a echoArgs) (string, error) {
			return "you said: " + a.Message, nil
		}, toolset.WithDescription("Echo a message back")),
		toolset.TypedTool("boom", func(ctx context.Context, a boomArgs) (string, error) {
			return "", errors.New("upstream unavailable")
		}),
		toolset.StaticTool{
			Descriptor: mcp.Tool{Name: "panicky", InputSchema: mcp.ToolInputSchema{Type: "object"}},
			Handler: func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				panic("tool blew up")
			},
		},
	)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	return New(registry, WithServerInfo(mcp.ImplementationInfo{Name: "weather-server", Version: "1.0.0"}))
}

// handle runs one line through the engine and decodes the response envelope.
func handle(t *testing.T, e *Engine, line string) map[string]any {
	t.Helper()
	out, ok := e.HandleLine(context.Background(), line)
	if !ok {
		t.Fatalf("expected a response line for %q, got none", line)
	}
	var env map[string]any
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("response is not valid JSON: %v (line: %q)", err, out)
	}
	return env
}

func errorCode(t *testing.T, env map[string]any) int {
	t.Helper()
	errObj, ok := env["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error envelope, got: %v", env)
	}
	code, ok := errObj["code"].(float64)
	if !ok {
		t.Fatalf("error code missing: %v", errObj)
	}
	return int(code)
}

func errorMessage(t *testing.T, env map[string]any) string {
	t.Helper()
	errObj, ok := env["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error envelope, got: %v", env)
	}
	msg, _ := errObj["message"].(string)
	return msg
}

func TestInitializeEchoesID(t *testing.T) {
	e := newTestEngine(t)

	env := handle(t, e, `{"jsonrpc":"2.0","id":7,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"c","version":"0"}}}`)

	if env["jsonrpc"] != "2.0" {
		t.Fatalf("wrong jsonrpc tag: %v", env["jsonrpc"])
	}
	if env["id"] != float64(7) {
		t.Fatalf("id not echoed: %v", env["id"])
	}
	result, ok := env["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected result, got: %v", env)
	}
	if result["protocolVersion"] != "2024-11-05" {
		t.Fatalf("wrong protocolVersion: %v", result["protocolVersion"])
	}
	info, ok := result["serverInfo"].(map[string]any)
	if !ok || info["name"] != "weather-server" || info["version"] != "1.0.0" {
		t.Fatalf("bad serverInfo: %v", result["serverInfo"])
	}
	caps, ok := result["capabilities"].(map[string]any)
	if !ok {
		t.Fatalf("missing capabilities: %v", result)
	}
	if _, ok := caps["tools"]; !ok {
		t.Fatalf("tools capability not advertised: %v", caps)
	}
}

func TestInitializeToleratesMalformedParams(t *testing.T) {
	e := newTestEngine(t)

	// Client params are recorded, not validated; a shape the handshake
	// decoder cannot read must still get the full initialize result.
	env := handle(t, e, `{"jsonrpc":"2.0","id":3,"method":"initialize","params":["not","an","object"]}`)

	if env["id"] != float64(3) {
		t.Fatalf("id not echoed: %v", env["id"])
	}
	result, ok := env["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected result, got: %v", env)
	}
	if result["protocolVersion"] != "2024-11-05" {
		t.Fatalf("wrong protocolVersion: %v", result["protocolVersion"])
	}
}

func TestInitializeStringID(t *testing.T) {
	e := newTestEngine(t)

	env := handle(t, e, `{"jsonrpc":"2.0","id":"abc-1","method":"initialize"}`)
	if env["id"] != "abc-1" {
		t.Fatalf("string id not echoed: %v", env["id"])
	}
}

func TestParseError(t *testing.T) {
	e := newTestEngine(t)

	env := handle(t, e, "not-json-at-all")
	if code := errorCode(t, env); code != int(jsonrpc.ErrorCodeParseError) {
		t.Fatalf("expected -32700, got %d", code)
	}
	if msg := errorMessage(t, env); msg != "Parse error" {
		t.Fatalf("unexpected message: %q", msg)
	}
	id, present := env["id"]
	if !present || id != nil {
		t.Fatalf("parse error must report id null, got: %v (present=%v)", id, present)
	}
}

func TestUnknownMethod(t *testing.T) {
	e := newTestEngine(t)

	env := handle(t, e, `{"jsonrpc":"2.0","id":2,"method":"resources/list"}`)
	if code := errorCode(t, env); code != int(jsonrpc.ErrorCodeMethodNotFound) {
		t.Fatalf("expected -32601, got %d", code)
	}
	if msg := errorMessage(t, env); msg != "Unknown method: resources/list" {
		t.Fatalf("unexpected message: %q", msg)
	}
	if env["id"] != float64(2) {
		t.Fatalf("id not echoed: %v", env["id"])
	}
}

func TestNotificationsProduceNoOutput(t *testing.T) {
	e := newTestEngine(t)

	lines := []string{
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		// Methods that would normally answer must stay silent without an id.
		`{"jsonrpc":"2.0","method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":null,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"echo","arguments":{"message":"hi"}}}`,
		`{"jsonrpc":"2.0","method":"no/such/method"}`,
	}
	for _, line := range lines {
		if out, ok := e.HandleLine(context.Background(), line); ok {
			t.Fatalf("notification produced output: %q -> %q", line, out)
		}
	}
}

func TestToolsListStableOrder(t *testing.T) {
	e := newTestEngine(t)

	want := []string{"echo", "boom", "panicky"}
	for i := 0; i < 3; i++ {
		env := handle(t, e, fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"tools/list"}`, i))
		result := env["result"].(map[string]any)
		tools, ok := result["tools"].([]any)
		if !ok || len(tools) != len(want) {
			t.Fatalf("expected %d tools, got: %v", len(want), result["tools"])
		}
		for j, tool := range tools {
			got := tool.(map[string]any)["name"]
			if got != want[j] {
				t.Fatalf("call %d: tool %d = %v, want %s", i, j, got, want[j])
			}
		}
	}
}

func TestToolsListDescriptorShape(t *testing.T) {
	e := newTestEngine(t)

	env := handle(t, e, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	tools := env["result"].(map[string]any)["tools"].([]any)
	echo := tools[0].(map[string]any)
	if echo["description"] != "Echo a message back" {
		t.Fatalf("missing description: %v", echo)
	}
	schema, ok := echo["inputSchema"].(map[string]any)
	if !ok || schema["type"] != "object" {
		t.Fatalf("bad inputSchema: %v", echo["inputSchema"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("missing properties: %v", schema)
	}
	if _, ok := props["message"]; !ok {
		t.Fatalf("message property missing: %v", props)
	}
}

func TestToolCallSuccess(t *testing.T) {
	e := newTestEngine(t)

	env := handle(t, e, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"message":"hello"}}}`)
	result, ok := env["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected result, got: %v", env)
	}
	content, ok := result["content"].([]any)
	if !ok || len(content) != 1 {
		t.Fatalf("expected one content block: %v", result)
	}
	block := content[0].(map[string]any)
	if block["type"] != "text" || block["text"] != "you said: hello" {
		t.Fatalf("unexpected content: %v", block)
	}
}

func TestToolCallUnknownTool(t *testing.T) {
	e := newTestEngine(t)

	env := handle(t, e, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"__nonexistent__","arguments":{}}}`)
	if code := errorCode(t, env); code != int(jsonrpc.ErrorCodeMethodNotFound) {
		t.Fatalf("expected -32601, got %d", code)
	}
	if msg := errorMessage(t, env); msg != "Unknown tool: __nonexistent__" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestToolCallFailureIsProtocolError(t *testing.T) {
	e := newTestEngine(t)

	env := handle(t, e, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"boom","arguments":{}}}`)
	if code := errorCode(t, env); code != int(jsonrpc.ErrorCodeInternalError) {
		t.Fatalf("expected -32603, got %d", code)
	}
	if msg := errorMessage(t, env); !strings.Contains(msg, "upstream unavailable") {
		t.Fatalf("failure detail not carried: %q", msg)
	}
	// Canonical form: errors are protocol errors, never success content.
	if _, ok := env["result"]; ok {
		t.Fatalf("tool failure leaked as result: %v", env)
	}
}

func TestToolCallPanicIsContained(t *testing.T) {
	e := newTestEngine(t)

	env := handle(t, e, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"panicky"}}`)
	if code := errorCode(t, env); code != int(jsonrpc.ErrorCodeInternalError) {
		t.Fatalf("expected -32603, got %d", code)
	}
	if env["id"] != float64(6) {
		t.Fatalf("id not echoed after panic: %v", env["id"])
	}
}

func TestErrorMessageSanitized(t *testing.T) {
	e := newTestEngine(t)

	env := handle(t, e, `{"jsonrpc":"2.0","id":8,"method":"bad\nmethod\r\tname"}`)
	msg := errorMessage(t, env)
	if strings.ContainsAny(msg, "\n\r\t") {
		t.Fatalf("control characters leaked into message: %q", msg)
	}
}

func TestLenientOrdering(t *testing.T) {
	e := newTestEngine(t)

	// tools/list and tools/call are accepted before initialize.
	env := handle(t, e, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	if _, ok := env["result"]; !ok {
		t.Fatalf("tools/list before initialize rejected: %v", env)
	}
	env = handle(t, e, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"message":"x"}}}`)
	if _, ok := env["result"]; !ok {
		t.Fatalf("tools/call before initialize rejected: %v", env)
	}
}

func TestResponseIsSingleLine(t *testing.T) {
	e := newTestEngine(t)

	out, ok := e.HandleLine(context.Background(), `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	if !ok {
		t.Fatal("expected output")
	}
	if strings.ContainsAny(out, "\n\r") {
		t.Fatalf("response spans multiple lines: %q", out)
	}
}
