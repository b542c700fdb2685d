package report

import (
	"context"
	"log/slog"

	"github.com/nvandessel/reciprocity/internal/engine"
)

// LogSink writes reports to a slog.Logger: run start and finish at info,
// rounds at debug.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// RunStarted implements engine.Sink.
func (l *LogSink) RunStarted(ctx context.Context, info engine.RunInfo) error {
	l.logger.InfoContext(ctx, "run started",
		"run_id", info.ID,
		"seed", info.Config.Seed,
		"clinics", info.Config.Clinics,
		"rounds", info.Config.Rounds,
		"player", info.Config.Player != nil)
	return nil
}

// RoundCompleted implements engine.Sink.
func (l *LogSink) RoundCompleted(ctx context.Context, r engine.RoundReport) error {
	l.logger.DebugContext(ctx, "round completed",
		"run_id", r.RunID,
		"round", r.Summary.Round,
		"opt_in_rate", r.Stats.OptInRate,
		"avg_credits", r.Stats.AvgCredits,
		"pool_collected", r.Summary.PoolCollected,
		"pool_distributed", r.Summary.PoolDistributed)
	return nil
}

// RunFinished implements engine.Sink.
func (l *LogSink) RunFinished(ctx context.Context, r engine.RunReport) error {
	l.logger.InfoContext(ctx, "run finished",
		"run_id", r.RunID,
		"opt_in_rate", r.Stats.OptInRate,
		"remaining_clinics", r.Stats.RemainingClinics,
		"avg_credits", r.Stats.AvgCredits,
		"avg_reputation", r.Stats.AvgReputation,
		"total_reads", r.Stats.TotalReads,
		"total_publishes", r.Stats.TotalPublishes,
		"duration", r.Duration)
	return nil
}

// Close is a no-op.
func (l *LogSink) Close() error { return nil }
