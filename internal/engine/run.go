package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/reciprocity/internal/logging"
	"github.com/nvandessel/reciprocity/internal/stats"
)

// RunInfo identifies a run when it starts.
type RunInfo struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Config    Config    `json:"config"`
}

// RoundReport is published after every completed round.
type RoundReport struct {
	RunID   string       `json:"run_id"`
	Summary RoundSummary `json:"summary"`
	Stats   stats.Stats  `json:"stats"`
}

// RunReport is published once a run has finished every round.
type RunReport struct {
	RunID    string        `json:"run_id"`
	Config   Config        `json:"config"`
	Stats    stats.Stats   `json:"stats"`
	Duration time.Duration `json:"duration"`
}

// Sink receives reports as a run progresses. Implementations live in the
// report package.
type Sink interface {
	RunStarted(ctx context.Context, info RunInfo) error
	RoundCompleted(ctx context.Context, r RoundReport) error
	RunFinished(ctx context.Context, r RunReport) error
}

// RunOptions configure Run. The zero value runs silently with the
// automatic policy.
type RunOptions struct {
	// RunID names the run. A random UUID is used when empty.
	RunID string

	// Policy drives the designated clinic. Defaults to Automatic.
	Policy Policy

	// Observer receives every round event.
	Observer Observer

	// Sink receives per-round and final reports.
	Sink Sink

	// Logger receives operational output. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Simulate runs cfg to completion with the automatic policy and returns the
// final statistics.
func Simulate(cfg Config) (stats.Stats, error) {
	res, err := Run(context.Background(), cfg, RunOptions{})
	if err != nil {
		return stats.Stats{}, err
	}
	return res.Stats, nil
}

// Run executes every configured round, reporting to opts.Sink as it goes.
// It stops early when ctx is cancelled or a sink fails.
func Run(ctx context.Context, cfg Config, opts RunOptions) (RunReport, error) {
	s, err := NewState(cfg)
	if err != nil {
		return RunReport{}, err
	}

	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}
	if opts.Policy == nil {
		opts.Policy = Automatic{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("run_id", opts.RunID)
	s.SetObserver(opts.Observer)

	start := time.Now()
	if opts.Sink != nil {
		info := RunInfo{ID: opts.RunID, StartedAt: start.UTC(), Config: s.Config()}
		if err := opts.Sink.RunStarted(ctx, info); err != nil {
			return RunReport{}, fmt.Errorf("reporting run start: %w", err)
		}
	}
	logger.Debug("run started", "seed", cfg.Seed, "clinics", cfg.Clinics, "rounds", cfg.Rounds)

	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return RunReport{}, err
		}
		if err := s.Step(opts.Policy); err != nil {
			return RunReport{}, err
		}

		summary := s.LastRound()
		logger.Log(ctx, logging.LevelTrace, "round complete",
			"round", summary.Round,
			"reads", summary.Reads,
			"publishes", summary.Publishes,
			"disputes", summary.Disputes,
			"opt_outs", summary.OptOuts,
			"pool", summary.PoolCollected)

		if opts.Sink != nil {
			r := RoundReport{RunID: opts.RunID, Summary: summary, Stats: s.BuildStats()}
			if err := opts.Sink.RoundCompleted(ctx, r); err != nil {
				return RunReport{}, fmt.Errorf("reporting round %d: %w", summary.Round, err)
			}
		}
	}

	report := RunReport{
		RunID:    opts.RunID,
		Config:   s.Config(),
		Stats:    s.BuildStats(),
		Duration: time.Since(start),
	}
	if opts.Sink != nil {
		if err := opts.Sink.RunFinished(ctx, report); err != nil {
			return RunReport{}, fmt.Errorf("reporting run finish: %w", err)
		}
	}
	logger.Debug("run finished",
		"opt_in_rate", report.Stats.OptInRate,
		"avg_credits", report.Stats.AvgCredits,
		"duration", report.Duration)
	return report, nil
}

// SweepResult is one seed's outcome in a sweep.
type SweepResult struct {
	Seed  uint32      `json:"seed"`
	Stats stats.Stats `json:"stats"`
}

// Sweep runs cfg once per seed and returns results in seed order. Runs are
// independent, so they execute concurrently with at most parallelism
// goroutines (unbounded when parallelism <= 0).
func Sweep(ctx context.Context, cfg Config, seeds []uint32, parallelism int) ([]SweepResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, seed := range seeds {
		g.Go(func() error {
			c := cfg.clone()
			c.Seed = seed
			report, err := Run(gctx, c, RunOptions{RunID: fmt.Sprintf("sweep-%d", seed)})
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[i] = SweepResult{Seed: seed, Stats: report.Stats}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
