package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/reciprocity/internal/api"
	"github.com/nvandessel/reciprocity/internal/report"
	"github.com/nvandessel/reciprocity/internal/session"
	"github.com/nvandessel/reciprocity/internal/store"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulator over HTTP",
		Long: `Start the HTTP API. Batch runs and driven sessions report to the
configured sinks; archived runs are browsable when the archive is enabled.

With --nats-embedded an in-process NATS server is started and reports are
published to it, so subscribers can follow runs without external
infrastructure.

Examples:
  reciprocity serve --addr :8080
  reciprocity serve --archive --nats-embedded --nats-port 4222`,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			archive, _ := cmd.Flags().GetBool("archive")
			embedded, _ := cmd.Flags().GetBool("nats-embedded")
			natsHost, _ := cmd.Flags().GetString("nats-host")
			natsPort, _ := cmd.Flags().GetInt("nats-port")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if archive {
				cfg.Report.Archive = true
			}
			logger := newLogger(cfg)

			if embedded {
				ns, err := report.StartEmbeddedNATS(natsHost, natsPort)
				if err != nil {
					return fmt.Errorf("failed to start embedded NATS: %w", err)
				}
				defer ns.Shutdown()
				cfg.Report.NATSURL = ns.ClientURL()
				logger.Info("embedded nats started", "url", ns.ClientURL(), "subject", cfg.Report.NATSSubject)
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			sink, err := openSinks(cfg, logger)
			if err != nil {
				return err
			}
			defer sink.Close()

			// The archive routes read through their own handle; the sink
			// owns the writer.
			var reader store.ReportStore
			if cfg.Report.Archive {
				archiveReader, err := openArchive(cfg)
				if err != nil {
					return err
				}
				defer archiveReader.Close()
				reader = archiveReader
			}

			registry := session.NewRegistry(session.Options{
				MaxSessions: cfg.Server.MaxSessions,
				IdleTTL:     cfg.Server.SessionIdleTTL,
				Sink:        sink,
				Logger:      logger,
			})

			server := api.NewServer(api.Config{
				Defaults:  cfg.EngineConfig(),
				Limits:    cfg.Server.Limits(),
				Registry:  registry,
				Sink:      sink,
				Store:     reader,
				RateLimit: cfg.Server.RateLimit,
				Version:   version,
				Logger:    logger,
			})

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			return server.Run(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().String("addr", ":8080", "HTTP listen address (overrides server.addr)")
	cmd.Flags().Bool("archive", false, "Archive every run and session")
	cmd.Flags().Bool("nats-embedded", false, "Start an in-process NATS server and publish reports to it")
	cmd.Flags().String("nats-host", "127.0.0.1", "Embedded NATS listen host")
	cmd.Flags().Int("nats-port", 4222, "Embedded NATS listen port")

	return cmd
}
