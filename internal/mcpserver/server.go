// Package mcpserver exposes the history operations as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/asheshgoplani/agent-history/internal/logging"
	"github.com/asheshgoplani/agent-history/internal/service"
)

var mcpLog = logging.ForComponent(logging.CompMCP)

// Server is the MCP tool server.
type Server struct {
	svc *service.Service
	mcp *server.MCPServer
}

// New registers the history tools on a new MCP server.
func New(svc *service.Service, version string) *Server {
	s := &Server{
		svc: svc,
		mcp: server.NewMCPServer("agent-history", version, server.WithToolCapabilities(false)),
	}
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(getTool(), s.handleGet)
	s.mcp.AddTool(contextTool(), s.handleContext)
	s.mcp.AddTool(projectsTool(), s.handleProjects)
	s.mcp.AddTool(sessionsTool(), s.handleSessions)
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Serve speaks JSON-RPC on in/out until ctx is cancelled or in is closed.
// Nothing else may write to out.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(logging.NewStdLogger(logging.CompMCP))
	mcpLog.Info("mcp_serve_start")
	err := stdio.Listen(ctx, in, out)
	mcpLog.Info("mcp_serve_stop")
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func scopeOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("project", mcp.Description("Project id, or several separated by commas. Defaults to the current project.")),
		mcp.WithBoolean("all", mcp.Description("Cover every project.")),
		mcp.WithString("cwd", mcp.Description("Working directory used to infer the current project.")),
	}
}

func searchTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Search Claude Code conversation history. Returns refs (<session-prefix>:<line>) usable with history_get and history_context."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("pattern", mcp.Description("Query. Space-separated terms are ANDed, a|b is OR, !term excludes. With regex=true a regular expression.")),
		mcp.WithString("sessions", mcp.Description("Session ids or 8-character prefixes, comma-separated.")),
		mcp.WithString("since", mcp.Description("RFC3339, YYYY-MM-DD, today, week or month.")),
		mcp.WithString("until", mcp.Description("RFC3339, YYYY-MM-DD, today, week or month.")),
		mcp.WithString("types", mcp.Description("Message types, comma-separated. Default: user,assistant,summary.")),
		mcp.WithString("lines", mcp.Description("Line ranges such as 1-100,200-,!150-160.")),
		mcp.WithBoolean("regex", mcp.Description("Treat pattern as a regular expression.")),
		mcp.WithBoolean("case_sensitive", mcp.Description("Match case exactly.")),
		mcp.WithNumber("offset", mcp.Description("Results to skip.")),
		mcp.WithNumber("limit", mcp.Description("Maximum results to return.")),
		mcp.WithNumber("max_content", mcp.Description("Characters per result before truncation. Default 4000.")),
		mcp.WithNumber("max_total", mcp.Description("Characters per response. Default 40000.")),
	}
	return mcp.NewTool("history_search", append(opts, scopeOptions()...)...)
}

func getTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Fetch the full content of one message by ref. Large messages need range or output."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Message ref, <session-prefix>:<line>.")),
		mcp.WithString("range", mcp.Description("Character range <start>-<end>.")),
		mcp.WithString("output", mcp.Description("Directory to write the content and decoded images to.")),
	}
	return mcp.NewTool("history_get", append(opts, scopeOptions()...)...)
}

func contextTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Return the messages around a ref, by count or up to the nearest message of a type."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Anchor ref, <session-prefix>:<line>.")),
		mcp.WithNumber("before", mcp.Description("Messages before the anchor.")),
		mcp.WithNumber("after", mcp.Description("Messages after the anchor.")),
		mcp.WithString("until_type", mcp.Description("Extend to the nearest message of this type instead of counting.")),
		mcp.WithString("direction", mcp.Description("forward or backward, used with until_type."), mcp.Enum("forward", "backward")),
		mcp.WithString("types", mcp.Description("Message types to include, comma-separated. The anchor is always included.")),
		mcp.WithNumber("max_content", mcp.Description("Characters per message.")),
		mcp.WithNumber("max_total", mcp.Description("Characters per response.")),
	}
	return mcp.NewTool("history_context", append(opts, scopeOptions()...)...)
}

func projectsTool() mcp.Tool {
	return mcp.NewTool("history_projects",
		mcp.WithDescription("List projects with session counts and last activity."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func sessionsTool() mcp.Tool {
	return mcp.NewTool("history_sessions",
		mcp.WithDescription("List the sessions of a project, latest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("project", mcp.Description("Project id. Defaults to the current project.")),
		mcp.WithString("cwd", mcp.Description("Working directory used to infer the current project.")),
	)
}

// argsFrom flattens tool arguments into service.Args.
func argsFrom(req mcp.CallToolRequest) service.Args {
	args := service.Args{}
	for k, v := range req.GetArguments() {
		switch val := v.(type) {
		case nil:
		case string:
			args[k] = val
		case bool:
			args[k] = strconv.FormatBool(val)
		case float64:
			args[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case []any:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, fmt.Sprint(item))
			}
			args[k] = strings.Join(parts, ",")
		default:
			args[k] = fmt.Sprint(val)
		}
	}
	return args
}

// result encodes a response or error as indented JSON text.
func result(tool string, v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		body := service.NewErrorBody(err)
		mcpLog.Debug("tool_error",
			slog.String("tool", tool),
			slog.String("kind", body.Error),
			slog.String("message", body.Message))
		data, _ := json.MarshalIndent(body, "", "  ")
		return mcp.NewToolResultError(string(data)), nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleSearch(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.svc.Search(argsFrom(req))
	return result("history_search", resp, err)
}

func (s *Server) handleGet(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.svc.Get(argsFrom(req))
	return result("history_get", resp, err)
}

func (s *Server) handleContext(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.svc.Context(argsFrom(req))
	return result("history_context", resp, err)
}

func (s *Server) handleProjects(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.svc.Projects()
	return result("history_projects", resp, err)
}

func (s *Server) handleSessions(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.svc.Sessions(argsFrom(req))
	return result("history_sessions", resp, err)
}
