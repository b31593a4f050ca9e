// Package mcpserver exposes the knowledge base to MCP clients over stdio.
package mcpserver

import (
	"context"

	"github.com/akolanti/kbbot/internal/rag"
	"github.com/akolanti/kbbot/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "1.0.0"

type Server struct {
	rag    rag.Service
	server *mcp.Server
	logger *logger_i.Logger
}

func NewServer(ragService rag.Service) *Server {
	s := &Server{
		rag:    ragService,
		server: mcp.NewServer(&mcp.Implementation{Name: "kbbot", Version: Version}, nil),
		logger: logger_i.NewLogger("mcp_server"),
	}
	s.registerTools()
	return s
}

// Run serves over stdin/stdout until ctx is cancelled or the client leaves.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server listening on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves one session on t.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}
