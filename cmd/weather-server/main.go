// Command weather-server is an MCP weather server speaking newline-delimited
// JSON-RPC over stdin/stdout. Diagnostics go to stderr; stdout carries
// protocol data only.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wxtools/weather-server-go/engine"
	"github.com/wxtools/weather-server-go/internal/logctx"
	"github.com/wxtools/weather-server-go/mcp"
	"github.com/wxtools/weather-server-go/stdio"
	"github.com/wxtools/weather-server-go/weather"
)

const (
	serverName    = "weather-server"
	serverVersion = "1.0.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	level := slog.LevelInfo
	if os.Getenv("WEATHER_SERVER_DEBUG") != "" {
		level = slog.LevelDebug
	}
	log := slog.New(logctx.Handler{
		Handler: slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	})
	slog.SetDefault(log)

	client := weather.NewFromEnv(weather.WithLogger(log))

	registry, err := weatherTools(client)
	if err != nil {
		log.Error("main.registry.fail", slog.String("err", err.Error()))
		os.Exit(1)
	}

	eng := engine.New(registry,
		engine.WithLogger(log),
		engine.WithServerInfo(mcp.ImplementationInfo{Name: serverName, Version: serverVersion}),
	)

	h := stdio.NewHandler(eng, stdio.WithLogger(log))
	if err := h.Serve(ctx); err != nil {
		log.Error("main.serve.fail", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
