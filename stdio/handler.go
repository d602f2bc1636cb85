package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/wxtools/weather-server-go/internal/jsonrpc"
	"github.com/wxtools/weather-server-go/internal/logctx"
)

// maxLineBytes bounds the size of a single inbound message.
const maxLineBytes = 4 * 1024 * 1024

// Engine is the per-line dispatcher the transport forwards messages to. An
// (out, false) return means the line was a notification and produced nothing.
type Engine interface {
	HandleLine(ctx context.Context, line string) (string, bool)
}

// Handler is a single-connection stdio transport. It reads newline-delimited
// messages from its reader, forwards each non-blank line to the engine, and
// writes any resulting response line back, flushed before the next read. By
// default it uses os.Stdin and os.Stdout.
type Handler struct {
	engine Engine
	r      io.Reader
	w      io.Writer
	log    *slog.Logger
	connID string
}

// NewHandler constructs a stdio Handler with defaults and applies options.
func NewHandler(engine Engine, opts ...Option) *Handler {
	h := &Handler{
		engine: engine,
		r:      os.Stdin,
		w:      os.Stdout,
		log:    slog.Default(),
		connID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve runs the transport loop until end-of-stream on the reader or the
// context is canceled; both end the loop without error. Cancellation takes
// effect even while the loop is blocked waiting for input, which is the normal
// state of a stdio server between requests. A stream write failure is the only
// error return besides an engine fault, which is reported once as a
// best-effort internal error envelope before the loop exits.
//
// Serve is safe to call at most once per Handler. Lines are fully resolved one
// at a time, so response ordering always matches request ordering.
func (h *Handler) Serve(ctx context.Context) error {
	ctx = logctx.WithConnData(ctx, &logctx.ConnData{ConnID: h.connID})
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := h.log.With(slog.String("conn_id", h.connID))
	log.InfoContext(ctx, "stdio.serve.start")

	// The scanner runs in its own goroutine so the loop below can select
	// against cancellation while a read is outstanding. On cancel the
	// goroutine stays parked on its current read until the stream closes;
	// for os.Stdin that read is reaped by process exit.
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(h.r)
		sc.Buffer(make([]byte, 64*1024), maxLineBytes)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			log.InfoContext(ctx, "stdio.serve.canceled")
			return nil
		case err := <-scanErr:
			if err != nil {
				if ctx.Err() != nil {
					log.InfoContext(ctx, "stdio.serve.canceled")
					return nil
				}
				return fmt.Errorf("read input: %w", err)
			}
			log.InfoContext(ctx, "stdio.serve.eof")
			return nil
		case text := <-lines:
			line := strings.TrimSpace(text)
			if line == "" {
				continue
			}

			out, ok, fault := h.handleLine(ctx, line)
			if !ok {
				if fault != nil {
					// Best-effort report, then surface the fault.
					_ = h.writeLine(internalErrorLine())
					return fault
				}
				continue
			}
			if err := h.writeLine(out); err != nil {
				return fmt.Errorf("write response: %w", err)
			}
		}
	}
}

// handleLine invokes the engine, converting any escaping panic into a fault.
// The engine's own contract is to never panic; this guard exists so that a
// broken tool cannot take the transport down without a final error line.
func (h *Handler) handleLine(ctx context.Context, line string) (out string, ok bool, fault error) {
	defer func() {
		if r := recover(); r != nil {
			h.log.ErrorContext(ctx, "stdio.handle_line.panic", slog.Any("panic", r))
			out, ok = "", false
			fault = fmt.Errorf("engine fault: %v", r)
		}
	}()
	out, ok = h.engine.HandleLine(ctx, line)
	return out, ok, nil
}

// writeLine emits one newline-terminated protocol line and flushes it
// immediately; the peer may be blocked waiting on it.
func (h *Handler) writeLine(line string) error {
	if _, err := io.WriteString(h.w, line+"\n"); err != nil {
		return err
	}
	if f, ok := h.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func internalErrorLine() string {
	resp := jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeInternalError, "Internal error")
	b, err := json.Marshal(resp)
	if err != nil {
		return `{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"Internal error"}}`
	}
	return string(b)
}
