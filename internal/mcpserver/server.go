// Package mcpserver exposes the tool catalog over the Model Context
// Protocol. It is a thin boundary: discovery comes from the registry,
// execution goes through the pipeline, and the MCP layer only translates the
// uniform result shape into protocol responses.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fmogensen/agentswarm-tools-sub000/internal/log"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/pipeline"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/tools"
)

// Server wraps the MCP SDK server around the registry and pipeline.
type Server struct {
	mcpServer *mcp.Server
	executor  *pipeline.Executor
	logger    log.Logger
}

// Config holds server identity.
type Config struct {
	Name    string
	Version string
}

// NewServer creates an MCP server exposing every registered tool.
func NewServer(cfg Config, registry *tools.Registry, executor *pipeline.Executor, logger log.Logger) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version}, nil),
		executor:  executor,
		logger:    logger,
	}

	for _, name := range registry.Names() {
		reg, err := registry.Get(name)
		if err != nil {
			return nil, err
		}
		s.registerTool(reg)
	}
	return s, nil
}

// Run starts serving on the given transport. Blocking.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

// registerTool bridges one registry entry to the protocol. The pipeline owns
// validation and error classification, so the handler never re-validates and
// never returns a protocol-level error for tool failures: those become error
// results with the classified kind in the payload.
func (s *Server) registerTool(reg *tools.Registration) {
	t := reg.Tool
	tool := &mcp.Tool{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.Schema(),
	}

	s.mcpServer.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var in map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
				return nil, fmt.Errorf("decoding arguments: %w", err)
			}
		}
		result := s.executor.Invoke(ctx, t.Name(), tools.Params(in))

		if !result.Success {
			payload, err := json.Marshal(result.Err)
			if err != nil {
				return nil, fmt.Errorf("encoding error payload: %w", err)
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
				IsError: true,
			}, nil
		}

		payload, err := json.Marshal(result.Output)
		if err != nil {
			return nil, fmt.Errorf("encoding result payload: %w", err)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
		}, nil
	})
}
