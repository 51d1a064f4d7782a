package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/news-rag/internal/pipeline"
	"github.com/bull/news-rag/internal/rag"
)

// Session is the retrieval session served by the tools.
// *pipeline.Session implements it.
type Session interface {
	Retrieve(ctx context.Context, query string, k int) (rag.RetrievalResult, error)
	Ask(ctx context.Context, query string) (*pipeline.Answer, error)
	Status() pipeline.Status
	Health(ctx context.Context) error
}

// Server wraps the MCP server with its session.
type Server struct {
	server  *mcp.Server
	session Session
}

// Config holds server dependencies.
type Config struct {
	Session Session
	// DefaultK is used when search_fragments is called without k.
	DefaultK int
	Version  string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	impl := &mcp.Implementation{
		Name:    "news-rag",
		Version: version,
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_fragments",
		Description: "Search the indexed news sources semantically. Returns the most similar text fragments with their source and score.",
	}, makeSearchHandler(cfg.Session, cfg.DefaultK))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed news sources. Returns the generated answer and the fragments used as context.",
	}, makeAskHandler(cfg.Session))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_status",
		Description: "Get the current status of the index: backend, embedding model, document and fragment counts.",
	}, makeStatusHandler(cfg.Session))

	return &Server{
		server:  server,
		session: cfg.Session,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
