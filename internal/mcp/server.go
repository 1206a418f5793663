package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/internal/service"
)

// Defaults applied when the MCP configuration leaves a field empty
const (
	DefaultServerName     = "biomed-dq-validator"
	DefaultRequestTimeout = 2 * time.Minute
	DefaultMaxRows        = 100000
)

// Server represents the data quality MCP server. It exposes the validation
// engine as tools over a stdio transport.
type Server struct {
	engine    *service.Engine
	cfg       domain.MCPConfig
	logger    *logrus.Logger
	mcpServer *mcp.Server
	tools     []*mcp.Tool
}

// NewServer creates a new MCP server instance and registers its tools.
func NewServer(engine *service.Engine, cfg domain.MCPConfig, logger *logrus.Logger) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("mcp server requires a validation engine")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = DefaultServerName
	}
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = service.EngineVersion
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = DefaultMaxRows
	}

	server := &Server{
		engine: engine,
		cfg:    cfg,
		logger: logger,
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.ServerName,
			Version: cfg.ServerVersion,
		}, nil),
	}
	server.registerTools()

	return server, nil
}

// registerTools adds every tool definition with its handler.
func (s *Server) registerTools() {
	handlers := map[string]mcp.ToolHandler{
		TOOL_VALIDATE_DATASET: s.handleValidateDataset,
		TOOL_QUICK_VALIDATE:   s.handleQuickValidate,
		TOOL_LIST_RANGE_SPECS: s.handleListRangeSpecs,
	}

	for _, tool := range toolDefinitions() {
		s.mcpServer.AddTool(tool, handlers[tool.Name])
		s.tools = append(s.tools, tool)
		s.logger.WithField("tool_name", tool.Name).Debug("Registered MCP tool")
	}

	s.logger.WithField("tool_count", len(s.tools)).Info("Successfully registered all tools")
}

// Tools returns the registered tool definitions.
func (s *Server) Tools() []*mcp.Tool {
	return s.tools
}

// Run serves MCP requests on stdin/stdout until ctx is cancelled or the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.WithFields(logrus.Fields{
		"server_name":    s.cfg.ServerName,
		"server_version": s.cfg.ServerVersion,
		"transport":      "stdio",
	}).Info("Starting data quality MCP server")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
