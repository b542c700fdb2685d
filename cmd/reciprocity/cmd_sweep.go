package main

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/nvandessel/reciprocity/internal/engine"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the same configuration across several seeds",
		Long: `Run one simulation per seed in parallel and print each result with the
mean across seeds. Results keep the order the seeds were given in.

Examples:
  reciprocity sweep --seeds 1,2,3
  reciprocity sweep --start 100 --count 20 --parallel 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			seedList, _ := cmd.Flags().GetUintSlice("seeds")
			start, _ := cmd.Flags().GetUint32("start")
			count, _ := cmd.Flags().GetInt("count")
			parallel, _ := cmd.Flags().GetInt("parallel")

			seeds, err := sweepSeeds(seedList, start, count)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			runCfg := overridesFromFlags(cmd).Apply(cfg.EngineConfig())

			logger := newLogger(cfg)
			logger.Info("sweep started", append(logAttrs(runCfg), "seeds", len(seeds), "parallel", parallel)...)

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			results, err := engine.Sweep(ctx, runCfg, seeds, parallel)
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}
			summary := summarizeSweep(results)

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"results": results,
					"mean":    summary,
				})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-10s  %9s  %7s  %11s  %10s  %7s  %9s\n",
				"SEED", "REMAINING", "OPT-IN", "AVG CREDITS", "AVG REP", "READS", "PUBLISHES")
			for _, r := range results {
				s := r.Stats
				fmt.Fprintf(w, "%-10d  %9d  %6.1f%%  %11.3f  %10.4f  %7d  %9d\n",
					r.Seed, s.RemainingClinics, s.OptInRate*100, s.AvgCredits, s.AvgReputation, s.TotalReads, s.TotalPublishes)
			}
			fmt.Fprintf(w, "%-10s  %9.1f  %6.1f%%  %11.3f  %10.4f  %7.1f  %9.1f\n",
				"mean", summary.RemainingClinics, summary.OptInRate*100, summary.AvgCredits,
				summary.AvgReputation, summary.TotalReads, summary.TotalPublishes)
			return nil
		},
	}

	addSimulationFlags(cmd)
	cmd.Flags().UintSlice("seeds", nil, "Comma-separated seeds to run")
	cmd.Flags().Uint32("start", 1, "First seed when --count is used")
	cmd.Flags().Int("count", 0, "Number of consecutive seeds starting at --start")
	cmd.Flags().Int("parallel", runtime.NumCPU(), "Maximum simulations run at once")

	return cmd
}

// sweepSeeds returns the explicit seeds, or count consecutive seeds from start.
func sweepSeeds(explicit []uint, start uint32, count int) ([]uint32, error) {
	if len(explicit) > 0 && count > 0 {
		return nil, fmt.Errorf("--seeds and --count are mutually exclusive")
	}

	if len(explicit) > 0 {
		seeds := make([]uint32, len(explicit))
		for i, s := range explicit {
			if uint64(s) > uint64(^uint32(0)) {
				return nil, fmt.Errorf("seed %d does not fit in 32 bits", s)
			}
			seeds[i] = uint32(s)
		}
		return seeds, nil
	}

	if count <= 0 {
		return nil, fmt.Errorf("provide --seeds or a positive --count")
	}
	seeds := make([]uint32, count)
	for i := range seeds {
		seeds[i] = start + uint32(i)
	}
	return seeds, nil
}

// SweepMean averages the final statistics of a sweep.
type SweepMean struct {
	Runs             int     `json:"runs"`
	RemainingClinics float64 `json:"remaining_clinics"`
	OptInRate        float64 `json:"opt_in_rate"`
	AvgCredits       float64 `json:"avg_credits"`
	AvgReputation    float64 `json:"avg_reputation"`
	TotalReads       float64 `json:"total_reads"`
	TotalPublishes   float64 `json:"total_publishes"`
}

func summarizeSweep(results []engine.SweepResult) SweepMean {
	m := SweepMean{Runs: len(results)}
	if len(results) == 0 {
		return m
	}
	for _, r := range results {
		m.RemainingClinics += float64(r.Stats.RemainingClinics)
		m.OptInRate += r.Stats.OptInRate
		m.AvgCredits += r.Stats.AvgCredits
		m.AvgReputation += r.Stats.AvgReputation
		m.TotalReads += float64(r.Stats.TotalReads)
		m.TotalPublishes += float64(r.Stats.TotalPublishes)
	}
	n := float64(len(results))
	m.RemainingClinics /= n
	m.OptInRate /= n
	m.AvgCredits /= n
	m.AvgReputation /= n
	m.TotalReads /= n
	m.TotalPublishes /= n
	return m
}
