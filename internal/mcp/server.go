// Package mcp provides an MCP (Model Context Protocol) server that lets an
// agent inspect its own trust state and request approvals.
package mcp

import (
	"context"
	"fmt"
	"io"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/trustloop/internal/app"
	"github.com/nvandessel/trustloop/internal/ratelimit"
	"github.com/nvandessel/trustloop/internal/store"
)

// Server wraps the MCP SDK server and provides trustloop tools.
type Server struct {
	server       *sdk.Server
	app          *app.App
	root         string
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "trustloop")
	Version string // Server version
	Root    string // Project root directory
	// Stderr receives operational logs. Nil discards them.
	Stderr io.Writer
}

// NewServer opens the project and creates an MCP server with trustloop tools.
func NewServer(ctx context.Context, cfg *Config) (*Server, error) {
	a, err := app.Open(ctx, app.Options{Root: cfg.Root, Stderr: cfg.Stderr})
	if err != nil {
		return nil, fmt.Errorf("failed to open project: %w", err)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			a.Logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		app:          a,
		root:         a.Root,
		toolLimiters: ratelimit.NewToolLimiters(),
		auditLogger:  NewAuditLogger(store.LocalPath(a.Root)),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves over stdio until the client disconnects or ctx is cancelled,
// then closes the server.
func (s *Server) Run(ctx context.Context) error {
	err := s.server.Run(ctx, &sdk.StdioTransport{})
	if cerr := s.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Close closes the server and releases resources. It is safe to call twice.
func (s *Server) Close() error {
	s.auditLogger.Close()
	if s.app == nil {
		return nil
	}
	err := s.app.Close()
	s.app = nil
	return err
}
