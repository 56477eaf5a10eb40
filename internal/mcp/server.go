// Package mcp exposes typedsql over the Model Context Protocol so assistants
// can inspect types, read generated SQL and query data.
package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/typedsql/internal/engine"
	"github.com/mvp-joe/typedsql/internal/logger"
)

// NewServer creates an MCP server with the typedsql tools registered. The
// query tool is only offered when the engine has a database.
func NewServer(e *engine.Engine, version string, withDatabase bool) *server.MCPServer {
	s := server.NewMCPServer(
		"typedsql",
		version,
		server.WithToolCapabilities(true),
	)
	AddDescribeTool(s, e)
	AddGenerateTool(s, e)
	if withDatabase {
		AddQueryTool(s, e)
	}
	return s
}

// Serve runs s on stdio until ctx is done or the client disconnects.
func Serve(ctx context.Context, s *server.MCPServer) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Get().Info("starting MCP server on stdio")
		errCh <- server.ServeStdio(s)
	}()

	select {
	case <-ctx.Done():
		logger.Get().Info("stopping MCP server")
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	}
}
