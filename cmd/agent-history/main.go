package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/asheshgoplani/agent-history/internal/config"
	"github.com/asheshgoplani/agent-history/internal/history"
	"github.com/asheshgoplani/agent-history/internal/logging"
	"github.com/asheshgoplani/agent-history/internal/service"
)

const Version = "0.1.0"

var cliLog = logging.ForComponent(logging.CompCLI)

// initColorProfile configures lipgloss for the output terminal.
// AGENT_HISTORY_COLOR: truecolor, 256, 16, none
func initColorProfile(stdout *os.File) {
	if colorEnv := os.Getenv("AGENT_HISTORY_COLOR"); colorEnv != "" {
		switch strings.ToLower(colorEnv) {
		case "truecolor", "true", "24bit":
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		case "256", "ansi256":
			lipgloss.SetColorProfile(termenv.ANSI256)
			return
		case "16", "ansi", "basic":
			lipgloss.SetColorProfile(termenv.ANSI)
			return
		case "none", "off", "ascii":
			lipgloss.SetColorProfile(termenv.Ascii)
			return
		}
	}

	// Piped output and NO_COLOR get plain text
	if os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(stdout.Fd())) {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	colorTerm := os.Getenv("COLORTERM")
	if colorTerm == "truecolor" || colorTerm == "24bit" {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}
	lipgloss.SetColorProfile(termenv.ANSI256)
}

func main() {
	initColorProfile(os.Stdout)
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run dispatches one subcommand and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printHelp(stdout)
		return 1
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "agent-history v%s\n", Version)
		return 0
	case "help", "--help", "-h":
		printHelp(stdout)
		return 0
	case "search", "get", "context", "projects", "sessions", "follow", "mcp", "serve":
	default:
		fmt.Fprintf(stderr, "Error: unknown command '%s'\n", cmd)
		fmt.Fprintln(stderr, "Run 'agent-history help' for usage.")
		return 1
	}

	cfg, cfgErr := config.Load()
	logCfg := cfg.LoggingConfig(config.Debug())
	if cmd == "serve" {
		// MCP stdio mode never gets a stderr mirror
		logCfg.Stderr = stderr
		if logCfg.Level == "" {
			logCfg.Level = "info"
		}
	}
	logging.Init(logCfg)
	defer logging.Shutdown()
	if cfgErr != nil {
		logging.ForComponent(logging.CompConfig).Warn("config_load_failed", slog.String("error", cfgErr.Error()))
		if cmd != "mcp" {
			fmt.Fprintf(stderr, "Warning: %v (using defaults)\n", cfgErr)
		}
	}
	if logCfg.LogDir != "" {
		watchDumpSignal(logCfg.LogDir)
	}

	svc := newService(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cliLog.Debug("command_start", slog.String("command", cmd), slog.String("cwd", svc.Cwd))

	switch cmd {
	case "search":
		return runSearch(svc, rest, stdout, stderr)
	case "get":
		return runGet(svc, rest, stdout, stderr)
	case "context":
		return runContext(svc, rest, stdout, stderr)
	case "projects":
		return runProjects(svc, rest, stdout, stderr)
	case "sessions":
		return runSessions(svc, rest, stdout, stderr)
	case "follow":
		return runFollow(ctx, svc, rest, stdout, stderr)
	case "mcp":
		return runMCP(ctx, svc, stdin, stdout)
	default:
		return runServe(ctx, cfg, svc, rest, stderr)
	}
}

// newService builds the history service for the configured Claude
// directory and the process working directory.
func newService(cfg *config.Config) *service.Service {
	corpus := history.NewCorpus(cfg.ClaudeConfigDir())
	cwd, err := os.Getwd()
	if err != nil {
		cliLog.Warn("getwd_failed", slog.String("error", err.Error()))
	}
	svc := &service.Service{Corpus: corpus, Cwd: cwd}
	if cfg != nil {
		corpus.Workers = cfg.Search.Workers
		svc.Defaults = service.Defaults{
			MaxContent:        cfg.Search.MaxContent,
			MaxTotal:          cfg.Search.MaxTotal,
			Types:             cfg.Search.Types,
			ContextMaxContent: cfg.Context.MaxContent,
			ContextMaxTotal:   cfg.Context.MaxTotal,
			RescansPerSecond:  cfg.Follow.RescansPerSecond,
		}
	}
	return svc
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, "agent-history v%s\n", Version)
	fmt.Fprintln(w, "Search and navigate Claude Code conversation history")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: agent-history <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  search [pattern]   Search messages (default: current project)")
	fmt.Fprintln(w, "  get <ref>          Show the full content of one message")
	fmt.Fprintln(w, "  context <ref>      Show the messages around a ref")
	fmt.Fprintln(w, "  projects           List projects")
	fmt.Fprintln(w, "  sessions           List sessions of a project")
	fmt.Fprintln(w, "  follow [pattern]   Print new matching messages as they are written")
	fmt.Fprintln(w, "  mcp                Run the MCP server on stdin/stdout")
	fmt.Fprintln(w, "  serve              Run the HTTP API")
	fmt.Fprintln(w, "  version            Show version")
	fmt.Fprintln(w, "  help               Show this help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Query syntax:")
	fmt.Fprintln(w, "  error timeout      messages containing both terms")
	fmt.Fprintln(w, "  error|warning      messages containing either term")
	fmt.Fprintln(w, "  error !timeout     exclude messages containing timeout")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Refs are <session prefix>:<line>, e.g. abcd1234:42")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  agent-history search \"deploy error\" --since week")
	fmt.Fprintln(w, "  agent-history search --all --types user --limit 20")
	fmt.Fprintln(w, "  agent-history context abcd1234:42 --before 3 --after 3")
	fmt.Fprintln(w, "  agent-history get abcd1234:42 --output ./export")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  CLAUDE_CONFIG_DIR     Claude data directory (default: ~/.claude)")
	fmt.Fprintln(w, "  AGENT_HISTORY_HOME    Config and log directory (default: ~/.agent-history)")
	fmt.Fprintln(w, "  AGENT_HISTORY_DEBUG   Write debug logs to $AGENT_HISTORY_HOME/debug.log")
}
