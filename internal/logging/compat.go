package logging

import (
	"bytes"
	"context"
	"log"
	"log/slog"
	"strings"
)

// BridgeWriter wraps slog as an io.Writer so that libraries which only
// accept a *log.Logger (net/http's ErrorLog, the MCP stdio transport) log
// through the structured logging system. A leading "name: " prefix such as
// net/http's "http: " is lifted into the component field when it names a
// known component.
type BridgeWriter struct {
	component string
	level     slog.Level
}

// NewBridgeWriter creates a writer that forwards writes to slog at warn
// level. defaultComponent is used when no known prefix is found.
func NewBridgeWriter(defaultComponent string) *BridgeWriter {
	return &BridgeWriter{component: defaultComponent, level: slog.LevelWarn}
}

// NewStdLogger returns a *log.Logger writing through a BridgeWriter.
func NewStdLogger(component string) *log.Logger {
	return log.New(NewBridgeWriter(component), "", 0)
}

// Write implements io.Writer. Each write is treated as one log line.
func (bw *BridgeWriter) Write(p []byte) (int, error) {
	n := len(p)
	msg := string(bytes.TrimSpace(p))
	if msg == "" {
		return n, nil
	}
	msg = stripLogTimestamp(msg)

	component := bw.component
	if idx := strings.Index(msg, ": "); idx > 0 && !strings.ContainsAny(msg[:idx], " \t") {
		if c := canonicalComponent(strings.ToLower(msg[:idx])); c != "" {
			component = c
			msg = msg[idx+2:]
		}
	}

	Logger().Log(context.Background(), bw.level, msg, slog.String("component", component))
	return n, nil
}

// stripLogTimestamp removes the date and time prefix added by log.LstdFlags
// ("2006/01/02 15:04:05 ") or log.Ltime ("15:04:05 ").
func stripLogTimestamp(s string) string {
	if len(s) > 20 && s[4] == '/' && s[7] == '/' && s[10] == ' ' && s[13] == ':' && s[16] == ':' && s[19] == ' ' {
		return s[20:]
	}
	if len(s) > 9 && s[2] == ':' && s[5] == ':' && s[8] == ' ' {
		return s[9:]
	}
	return s
}

// canonicalComponent maps a library log prefix to a component name, or ""
// when the prefix is not one we recognise.
func canonicalComponent(prefix string) string {
	switch prefix {
	case "http", "http2", "httputil":
		return CompHTTP
	case "mcp", "stdio", "jsonrpc":
		return CompMCP
	case "fsnotify", "inotify":
		return CompFollow
	default:
		return ""
	}
}
