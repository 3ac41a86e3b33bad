package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/asheshgoplani/agent-history/internal/config"
	"github.com/asheshgoplani/agent-history/internal/mcpserver"
	"github.com/asheshgoplani/agent-history/internal/service"
	"github.com/asheshgoplani/agent-history/internal/web"
)

const shutdownTimeout = 5 * time.Second

// runMCP serves the history tools over stdin/stdout until the client
// disconnects or ctx is cancelled. Nothing else may write to stdout.
func runMCP(ctx context.Context, svc *service.Service, stdin io.Reader, stdout io.Writer) int {
	srv := mcpserver.New(svc, Version)
	cliLog.Info("mcp_start", slog.String("cwd", svc.Cwd))
	if err := srv.Serve(ctx, stdin, stdout); err != nil && !errors.Is(err, context.Canceled) {
		cliLog.Error("mcp_failed", slog.String("error", err.Error()))
		return 1
	}
	return 0
}

// buildServeServer parses serve flags over the configured defaults.
func buildServeServer(cfg *config.Config, svc *service.Service, args []string, stderr io.Writer) (*web.Server, int, bool) {
	a := newArgFlags("serve", stderr)
	listen := a.fs.String("listen", cfg.Listen(), "Listen address")
	token := a.fs.String("token", "", "Bearer token required for API access (default: [web] token)")
	usage(a, "serve [options]", "Serve the history API over HTTP, with live follow over websocket and SSE.",
		"agent-history serve",
		"agent-history serve --listen 127.0.0.1:9000 --token secret")
	if code, stop := parseFlags(a, args); stop {
		return nil, code, true
	}
	if a.fs.NArg() > 0 {
		fmt.Fprintf(stderr, "Error: unexpected arguments: %v\n", a.fs.Args())
		return nil, 1, true
	}

	resolvedToken := *token
	if resolvedToken == "" && cfg != nil {
		resolvedToken = cfg.Web.Token
	}
	return web.NewServer(web.Config{
		ListenAddr: *listen,
		Token:      resolvedToken,
		Version:    Version,
		Service:    svc,
	}), 0, false
}

func runServe(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, stderr io.Writer) int {
	server, code, stop := buildServeServer(cfg, svc, args, stderr)
	if stop {
		return code
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	fmt.Fprintf(stderr, "Serving history on http://%s (Ctrl+C to stop)\n", server.Addr())

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(stderr, "Error: shutdown: %v\n", err)
		return 1
	}
	<-errCh
	return 0
}
