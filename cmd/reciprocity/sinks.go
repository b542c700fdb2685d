package main

import (
	"fmt"
	"log/slog"

	"github.com/nvandessel/reciprocity/internal/config"
	"github.com/nvandessel/reciprocity/internal/report"
	"github.com/nvandessel/reciprocity/internal/store"
)

// openArchive opens the SQLite report archive named by cfg.
func openArchive(cfg *config.ReciprocityConfig) (*store.SQLiteReportStore, error) {
	path, err := cfg.ArchivePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve archive path: %w", err)
	}
	archive, err := store.NewSQLiteReportStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return archive, nil
}

// openSinks builds the report sinks selected by cfg: the log sink always,
// then the archive and NATS when configured, then extra. The returned sink
// owns every sink it holds.
func openSinks(cfg *config.ReciprocityConfig, logger *slog.Logger, extra ...report.Sink) (report.Sink, error) {
	sinks := []report.Sink{report.NewLogSink(logger)}

	if cfg.Report.Archive {
		archive, err := openArchive(cfg)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, report.NewStoreSink(archive, true))
	}

	if cfg.Report.NATSURL != "" {
		natsSink, err := report.DialNATS(cfg.Report.NATSURL, cfg.Report.NATSSubject)
		if err != nil {
			report.Multi(sinks...).Close()
			return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.Report.RedactedNATSURL(), err)
		}
		sinks = append(sinks, natsSink)
	}

	sinks = append(sinks, extra...)
	return report.Multi(sinks...), nil
}
