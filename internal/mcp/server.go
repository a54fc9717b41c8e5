package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/sitemermaid/internal/render"
	"github.com/ziadkadry99/sitemermaid/internal/session"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes sitemap diagram tools.
type Server struct {
	session  *session.Session
	renderer *render.Client
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server over the given session.
func NewServer(sess *session.Session, renderer *render.Client) *Server {
	s := &Server{
		session:  sess,
		renderer: renderer,
	}

	s.mcp = server.NewMCPServer(
		"sitemermaid",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(generateDiagramTool, s.handleGenerateDiagram)
	s.mcp.AddTool(getDiagramTool, s.handleGetDiagram)
	s.mcp.AddTool(listPagesTool, s.handleListPages)
	s.mcp.AddTool(renderURLTool, s.handleRenderURL)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
