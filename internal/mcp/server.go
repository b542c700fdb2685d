// Package mcp provides an MCP (Model Context Protocol) server for the
// reciprocity simulator.
package mcp

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/ratelimit"
	"github.com/nvandessel/reciprocity/internal/session"
)

// Server wraps the MCP SDK server and exposes simulation tools.
type Server struct {
	server       *sdk.Server
	registry     *session.Registry
	defaults     engine.Config
	limits       engine.Limits
	sink         engine.Sink
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	logger       *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "reciprocity")
	Version string // Server version

	// Defaults is the run configuration tool overrides are applied to.
	Defaults engine.Config

	// Limits bound the runs a tool call may ask for. The zero value uses
	// engine.DefaultLimits.
	Limits engine.Limits

	// Registry holds driven sessions. A private registry is created when nil.
	Registry *session.Registry

	// Sink receives the reports of batch runs started with sim_run.
	Sink engine.Sink

	// RateLimit is the per-minute request budget. Zero disables limiting.
	RateLimit float64

	// AuditDir receives audit.jsonl. Empty disables auditing.
	AuditDir string

	Logger *slog.Logger
}

// NewServer creates a new MCP server with simulation tools.
func NewServer(cfg *Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	registry := cfg.Registry
	if registry == nil {
		registry = session.NewRegistry(session.Options{Logger: logger})
	}
	limits := cfg.Limits
	if limits == (engine.Limits{}) {
		limits = engine.DefaultLimits()
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		registry:     registry,
		defaults:     cfg.Defaults,
		limits:       limits,
		sink:         cfg.Sink,
		toolLimiters: ratelimit.NewToolLimiters(cfg.RateLimit),
		logger:       logger,
	}
	if cfg.AuditDir != "" {
		s.auditLogger = NewAuditLogger(cfg.AuditDir)
	}

	s.registerTools()
	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	return s.serveWithTransport(ctx, &sdk.StdioTransport{})
}

func (s *Server) serveWithTransport(ctx context.Context, t sdk.Transport) error {
	return s.server.Run(ctx, t)
}

// Close releases the audit log.
func (s *Server) Close() error {
	return s.auditLogger.Close()
}
