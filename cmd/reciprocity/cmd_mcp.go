package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/reciprocity/internal/mcp"
	"github.com/nvandessel/reciprocity/internal/session"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Run an MCP server over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout so an agent can
run simulations and drive the player clinic one round at a time.

Tools: sim_run, sim_create, sim_step, sim_stats, sim_history, sim_close.
Tool calls are audited to ~/.reciprocity/audit.jsonl.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			noAudit, _ := cmd.Flags().GetBool("no-audit")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg)

			sink, err := openSinks(cfg, logger)
			if err != nil {
				return err
			}
			defer sink.Close()

			auditDir := cfg.EventDir()
			if noAudit {
				auditDir = ""
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "reciprocity",
				Version:  version,
				Defaults: cfg.EngineConfig(),
				Limits:   cfg.Server.Limits(),
				Registry: session.NewRegistry(session.Options{
					MaxSessions: cfg.Server.MaxSessions,
					IdleTTL:     cfg.Server.SessionIdleTTL,
					Sink:        sink,
					Logger:      logger,
				}),
				Sink:      sink,
				RateLimit: cfg.Server.RateLimit,
				AuditDir:  auditDir,
				Logger:    logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer server.Close()

			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().Bool("no-audit", false, "Disable the tool call audit log")
	return cmd
}
