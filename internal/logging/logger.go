package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Components tag every record so one debug.log can be filtered per layer.
const (
	CompSearch  = "search"
	CompContext = "context"
	CompCorpus  = "corpus"
	CompFollow  = "follow"
	CompMCP     = "mcp"
	CompHTTP    = "http"
	CompConfig  = "config"
	CompCLI     = "cli"
)

// LogFileName is the rotated log file inside LogDir.
const LogFileName = "debug.log"

// Config holds logging configuration. Zero values take the defaults noted
// on each field.
type Config struct {
	// LogDir receives LogFileName. Empty disables the file.
	LogDir string

	// Level is "debug", "info" (default), "warn" or "error".
	Level string

	// Format is "json" (default) or "text".
	Format string

	// MaxSizeMB rotates debug.log at this size (default: 10)
	MaxSizeMB int

	// MaxBackups is rotated files to keep (default: 5)
	MaxBackups int

	// MaxAgeDays is days to keep rotated files (default: 10)
	MaxAgeDays int

	// Compress gzips rotated files.
	Compress bool

	// RingBufferSize is the crash buffer size in bytes (default: 10MB)
	RingBufferSize int

	// AggregateIntervalSecs is the event summary interval (default: 30)
	AggregateIntervalSecs int

	// PprofEnabled starts a pprof server on PprofAddr
	PprofEnabled bool

	// PprofAddr is the pprof listen address (default: localhost:6060)
	PprofAddr string

	// Debug forces logging on even without a LogDir.
	Debug bool

	// Stderr mirrors records to standard error. Never set it in MCP stdio
	// mode, where stdout and stderr belong to the client.
	Stderr io.Writer
}

func (c Config) withDefaults() Config {
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 5
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 10
	}
	if c.RingBufferSize <= 0 {
		c.RingBufferSize = 10 * 1024 * 1024
	}
	if c.AggregateIntervalSecs <= 0 {
		c.AggregateIntervalSecs = 30
	}
	return c
}

// enabled reports whether any sink would receive records.
func (c Config) enabled() bool {
	return c.Debug || c.LogDir != "" || c.Stderr != nil
}

// parseLevel maps a config level name to slog, defaulting to info.
func parseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo
	}
	return level
}

var discardLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

var (
	globalMu     sync.RWMutex
	globalLogger *slog.Logger
	globalRing   *RingBuffer
	globalAgg    *Aggregator
	logFile      *lumberjack.Logger
)

// Init installs the global logger. Calling it again replaces the previous
// setup after flushing it. With no sink configured every record is dropped.
func Init(cfg Config) {
	cfg = cfg.withDefaults()

	globalMu.Lock()
	defer globalMu.Unlock()
	closeLocked()

	if !cfg.enabled() {
		globalLogger = discardLogger
		globalRing = NewRingBuffer(1024)
		globalAgg = NewAggregator(nil, cfg.AggregateIntervalSecs)
		return
	}

	globalRing = NewRingBuffer(cfg.RingBufferSize)
	sinks := []io.Writer{globalRing}
	if cfg.LogDir != "" {
		logFile = &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, LogFileName),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		sinks = append(sinks, logFile)
	}
	if cfg.Stderr != nil {
		sinks = append(sinks, cfg.Stderr)
	}

	out := io.MultiWriter(sinks...)
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "text" {
		globalLogger = slog.New(slog.NewTextHandler(out, opts))
	} else {
		globalLogger = slog.New(slog.NewJSONHandler(out, opts))
	}

	globalAgg = NewAggregator(globalLogger, cfg.AggregateIntervalSecs)
	globalAgg.Start()

	if cfg.PprofEnabled {
		startPprof(cfg.PprofAddr)
	}
}

// Logger returns the global logger, or a discarding one before Init.
func Logger() *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger == nil {
		return discardLogger
	}
	return globalLogger
}

// ForComponent returns a logger tagged with component. It resolves the
// global handler on every record, so package-level loggers declared before
// Init still reach the configured sinks.
func ForComponent(component string) *slog.Logger {
	return slog.New(&dynamicHandler{component: component})
}

// handlerOp replays one WithAttrs or WithGroup call onto the live handler.
type handlerOp struct {
	attrs []slog.Attr
	group string
}

type dynamicHandler struct {
	component string
	ops       []handlerOp
}

func (h *dynamicHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return Logger().Handler().Enabled(ctx, level)
}

func (h *dynamicHandler) Handle(ctx context.Context, r slog.Record) error {
	handler := Logger().Handler().WithAttrs([]slog.Attr{slog.String("component", h.component)})
	for _, op := range h.ops {
		if op.group != "" {
			handler = handler.WithGroup(op.group)
		} else {
			handler = handler.WithAttrs(op.attrs)
		}
	}
	return handler.Handle(ctx, r)
}

func (h *dynamicHandler) with(op handlerOp) *dynamicHandler {
	ops := make([]handlerOp, len(h.ops), len(h.ops)+1)
	copy(ops, h.ops)
	return &dynamicHandler{component: h.component, ops: append(ops, op)}
}

func (h *dynamicHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.with(handlerOp{attrs: attrs})
}

func (h *dynamicHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(handlerOp{group: name})
}

// Aggregate counts a high-frequency event, such as a skipped malformed
// line, for the next periodic summary.
func Aggregate(component, event string, fields ...slog.Attr) {
	globalMu.RLock()
	agg := globalAgg
	globalMu.RUnlock()
	if agg != nil {
		agg.Record(component, event, fields...)
	}
}

// DumpRingBuffer writes the buffered records to path.
func DumpRingBuffer(path string) error {
	globalMu.RLock()
	ring := globalRing
	globalMu.RUnlock()
	if ring == nil {
		return nil
	}
	return ring.DumpToFile(path)
}

// Shutdown flushes pending summaries and closes the log file.
func Shutdown() {
	globalMu.Lock()
	defer globalMu.Unlock()
	closeLocked()
}

func closeLocked() {
	if globalAgg != nil {
		globalAgg.Stop()
		globalAgg = nil
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	globalLogger = nil
	globalRing = nil
}
