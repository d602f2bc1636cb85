// Package engine implements the JSON-RPC dispatch core: it turns one raw
// input line into at most one response line. The engine holds no state across
// messages beyond the immutable tool registry and static server info.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/wxtools/weather-server-go/internal/jsonrpc"
	"github.com/wxtools/weather-server-go/internal/logctx"
	"github.com/wxtools/weather-server-go/mcp"
	"github.com/wxtools/weather-server-go/toolset"
)

// Engine dispatches JSON-RPC messages to the method handlers. Construct with
// New; the zero value is not usable.
type Engine struct {
	log      *slog.Logger
	info     mcp.ImplementationInfo
	registry *toolset.Registry
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithServerInfo sets the serverInfo reported by initialize.
func WithServerInfo(info mcp.ImplementationInfo) Option {
	return func(e *Engine) { e.info = info }
}

// New constructs an Engine over the given tool registry.
func New(registry *toolset.Registry, opts ...Option) *Engine {
	e := &Engine{
		log:      slog.Default(),
		info:     mcp.ImplementationInfo{Name: "weather-server", Version: "0.0.0"},
		registry: registry,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleLine processes one raw input line. It returns the serialized response
// line and true, or "" and false when the message warrants no reply
// (notifications). It never panics on malformed input; every failure path is
// folded into an error envelope.
func (e *Engine) HandleLine(ctx context.Context, line string) (out string, ok bool) {
	var recoveredID *jsonrpc.RequestID
	defer func() {
		// A handler fault must not escape the engine; report it against
		// whatever ID was recovered before the fault.
		if r := recover(); r != nil {
			e.log.ErrorContext(ctx, "engine.handle_line.panic", slog.Any("panic", r))
			out, ok = e.serialize(ctx, jsonrpc.NewErrorResponse(recoveredID, jsonrpc.ErrorCodeInternalError, "Internal error"), false)
		}
	}()

	var req jsonrpc.Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		e.log.InfoContext(ctx, "engine.handle_line.parse_fail", slog.String("err", err.Error()))
		return e.serialize(ctx, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeParseError, "Parse error"), false)
	}
	recoveredID = req.ID

	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: req.Method,
		ID:     req.ID.String(),
		Type:   messageType(&req),
	})

	resp := e.dispatch(ctx, &req)

	// Notifications never receive a reply, whatever the handler produced.
	if req.IsNotification() {
		return "", false
	}
	if resp == nil {
		return "", false
	}
	return e.serialize(ctx, resp, true)
}

func messageType(req *jsonrpc.Request) string {
	if req.IsNotification() {
		return "notification"
	}
	return "request"
}

func (e *Engine) dispatch(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	start := time.Now()
	log := e.log.With(slog.String("method", req.Method))

	switch mcp.Method(req.Method) {
	case mcp.InitializeMethod:
		// The client's params are recorded but never validated; any client
		// gets the same handshake result, malformed params included.
		var init mcp.InitializeRequest
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &init); err != nil {
				log.InfoContext(ctx, "engine.initialize.params_unreadable", slog.String("err", err.Error()))
			}
		}
		if init.ClientInfo.Name != "" {
			log = log.With(
				slog.String("client_name", init.ClientInfo.Name),
				slog.String("client_version", init.ClientInfo.Version),
				slog.String("client_protocol_version", init.ProtocolVersion))
		}

		res := mcp.InitializeResult{
			ProtocolVersion: mcp.LatestProtocolVersion,
			Capabilities:    mcp.ServerCapabilities{Tools: &mcp.ToolsCapability{}},
			ServerInfo:      e.info,
		}
		resp, err := jsonrpc.NewResultResponse(req.ID, res)
		if err != nil {
			log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "Internal error")
		}
		log.InfoContext(ctx, "engine.handle_request.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return resp

	case mcp.InitializedNotificationMethod:
		log.InfoContext(ctx, "engine.handle_request.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return nil

	case mcp.ToolsListMethod:
		res := mcp.ListToolsResult{Tools: e.registry.Tools()}
		resp, err := jsonrpc.NewResultResponse(req.ID, res)
		if err != nil {
			log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "Internal error")
		}
		log.InfoContext(ctx, "engine.handle_request.ok",
			slog.Int64("dur_ms", time.Since(start).Milliseconds()),
			slog.Int("tool_count", e.registry.Len()))
		return resp

	case mcp.ToolsCallMethod:
		return e.handleToolCall(ctx, req)

	default:
		log.InfoContext(ctx, "engine.handle_request.unknown_method", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "Unknown method: "+sanitize(req.Method))
	}
}

func (e *Engine) handleToolCall(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	start := time.Now()
	log := e.log.With(slog.String("method", req.Method))

	var params mcp.CallToolRequest
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			log.InfoContext(ctx, "engine.handle_request.invalid", slog.String("err", err.Error()))
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "Internal error: malformed tools/call params")
		}
	}

	ctx = logctx.WithToolCallData(ctx, &logctx.ToolCallData{ToolName: params.Name})

	handler, ok := e.registry.Handler(params.Name)
	if !ok {
		log.InfoContext(ctx, "engine.handle_request.unknown_tool", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "Unknown tool: "+sanitize(params.Name))
	}

	res, err := handler(ctx, &params)
	if err != nil {
		log.ErrorContext(ctx, "engine.handle_request.fail",
			slog.String("err", err.Error()),
			slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, sanitize(err.Error()))
	}

	resp, err := jsonrpc.NewResultResponse(req.ID, res)
	if err != nil {
		log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "Internal error")
	}

	log.InfoContext(ctx, "engine.handle_request.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
	return resp
}

// serialize renders a response envelope to a single output line. A
// serialization failure of a success envelope degrades to an internal error
// envelope with the same ID; error envelopes themselves cannot fail to
// marshal.
func (e *Engine) serialize(ctx context.Context, resp *jsonrpc.Response, retry bool) (string, bool) {
	b, err := json.Marshal(resp)
	if err != nil {
		e.log.ErrorContext(ctx, "engine.serialize.fail", slog.String("err", err.Error()))
		if !retry {
			return "", false
		}
		return e.serialize(ctx, jsonrpc.NewErrorResponse(resp.ID, jsonrpc.ErrorCodeInternalError, "Internal error"), false)
	}
	return string(b), true
}

// sanitize strips control characters from dynamic detail embedded in error
// messages so a hostile method or tool name cannot break line framing.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
}
