package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"fcexport/internal/service"
)

// Server is the MCP server for the export tool. It exposes the export
// pipeline and saved jobs so AI agents can drive exports over stdio.
type Server struct {
	mcp *server.MCPServer
	log *logrus.Logger

	exports *service.ExportService
}

// Deps holds all dependencies passed to the MCP server.
type Deps struct {
	Exports *service.ExportService
	Log     *logrus.Logger
}

// New creates and configures a new MCP server with all tools.
func New(deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = logrus.New()
	}
	s := &Server{
		log:     deps.Log,
		exports: deps.Exports,
	}

	s.mcp = server.NewMCPServer(
		"fcexport-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerExportTools()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("starting MCP stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
