package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/logging"
	"github.com/nvandessel/reciprocity/internal/random"
	"github.com/nvandessel/reciprocity/internal/report"
	"github.com/nvandessel/reciprocity/internal/stats"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation to completion",
		Long: `Run a complete simulation with the automatic policy and print the final
statistics. Flags override the configured run.

Examples:
  reciprocity run                          # Reference run (200 clinics, 45 rounds, seed 7)
  reciprocity run --seed 3 --rounds 20     # Shorter run with another seed
  reciprocity run --player --quality-bias 1
  reciprocity run --jsonl                  # Stream every round as JSON lines
  reciprocity run --random-seed --json     # Fresh seed, reported in the config`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			jsonl, _ := cmd.Flags().GetBool("jsonl")
			archive, _ := cmd.Flags().GetBool("archive")
			randomSeed, _ := cmd.Flags().GetBool("random-seed")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if archive {
				cfg.Report.Archive = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			runCfg := overridesFromFlags(cmd).Apply(cfg.EngineConfig())
			if randomSeed {
				if cmd.Flags().Changed("seed") {
					return fmt.Errorf("--seed and --random-seed are mutually exclusive")
				}
				if runCfg.Seed, err = random.NewSeed(); err != nil {
					return err
				}
			}

			logger := newLogger(cfg)
			runID := uuid.New().String()

			var extra []report.Sink
			if jsonl {
				extra = append(extra, report.NewJSONLSink(nopCloser{cmd.OutOrStdout()}, true))
			}
			sink, err := openSinks(cfg, logger, extra...)
			if err != nil {
				return err
			}
			defer sink.Close()

			events := logging.NewEventLogger(cfg.EventDir(), cfg.Logging.Level, runID)
			defer events.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			res, err := engine.Run(ctx, runCfg, engine.RunOptions{
				RunID:    runID,
				Observer: engine.ObserverFunc(func(e engine.Event) { events.Log(e) }),
				Sink:     sink,
				Logger:   logger,
			})
			if err != nil {
				return fmt.Errorf("run failed: %w", err)
			}

			if jsonl {
				return nil
			}
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"run_id":      res.RunID,
					"config":      res.Config,
					"stats":       res.Stats,
					"duration_ms": res.Duration.Milliseconds(),
				})
			}
			printRun(cmd.OutOrStdout(), res)
			return nil
		},
	}

	addSimulationFlags(cmd)
	cmd.Flags().Bool("jsonl", false, "Stream run and round reports to stdout as JSON lines")
	cmd.Flags().Bool("archive", false, "Save the run to the report archive")
	cmd.Flags().Bool("random-seed", false, "Draw a fresh seed instead of the configured one")

	return cmd
}

// nopCloser keeps the JSONL sink from closing stdout.
type nopCloser struct {
	io.Writer
}

func printRun(w io.Writer, res engine.RunReport) {
	cfg := res.Config
	fmt.Fprintf(w, "Run %s\n", res.RunID)
	fmt.Fprintf(w, "  %d clinics, %d patients, %d rounds, seed %d\n", cfg.Clinics, cfg.Patients, cfg.Rounds, cfg.Seed)
	fmt.Fprintln(w)
	printStats(w, res.Stats)
}

func printStats(w io.Writer, s stats.Stats) {
	fmt.Fprintf(w, "  remaining clinics:  %d (%.1f%% opted in)\n", s.RemainingClinics, s.OptInRate*100)
	fmt.Fprintf(w, "  avg credits:        %.3f\n", s.AvgCredits)
	fmt.Fprintf(w, "  avg reputation:     %.4f\n", s.AvgReputation)
	fmt.Fprintf(w, "  total reads:        %d\n", s.TotalReads)
	fmt.Fprintf(w, "  total publishes:    %d\n", s.TotalPublishes)
	if p := s.Player; p != nil {
		status := "opted in"
		if !p.OptedIn {
			status = "opted out"
		}
		fmt.Fprintf(w, "  player %s:        %d credits, reputation %.4f, %d reads, %d publishes, %s\n",
			p.ID, p.Credits, p.Reputation, p.Reads, p.Publishes, status)
	}
}

// logAttrs is shared by commands that log the run shape.
func logAttrs(cfg engine.Config) []any {
	return []any{
		slog.Int("clinics", cfg.Clinics),
		slog.Int("rounds", cfg.Rounds),
		slog.Uint64("seed", uint64(cfg.Seed)),
	}
}
