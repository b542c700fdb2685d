package store

import (
	"context"
	"fmt"
)

// ValidationError describes an archived run that does not describe a
// consistent simulation.
type ValidationError struct {
	RunID string `json:"run_id"`
	Round int    `json:"round,omitempty"`
	Issue string `json:"issue"` // "gap", "pool", "totals", "opt-in", "incomplete", "final-stats"
	Info  string `json:"info"`
}

// String returns a human-readable description of the validation error.
func (e ValidationError) String() string {
	if e.Round > 0 {
		return fmt.Sprintf("%s: run %s round %d: %s", e.Issue, e.RunID, e.Round, e.Info)
	}
	return fmt.Sprintf("%s: run %s: %s", e.Issue, e.RunID, e.Info)
}

// ValidateRun checks one archived run for consistency:
//   - rounds are numbered 1..n without gaps
//   - no round distributes more than its pool collected
//   - cumulative reads and publishes never decrease
//   - the number of opted-in clinics never increases
//   - a finished run has every round up to its final stats, which match the
//     last round
func ValidateRun(ctx context.Context, s ReportStore, runID string) ([]ValidationError, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	rounds, err := s.GetRounds(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rounds: %w", err)
	}

	var errs []ValidationError
	add := func(round int, issue, format string, args ...any) {
		errs = append(errs, ValidationError{RunID: runID, Round: round, Issue: issue, Info: fmt.Sprintf(format, args...)})
	}

	prevReads, prevPublishes := 0, 0
	prevRemaining := run.Config.Clinics
	for i, r := range rounds {
		n := r.Summary.Round
		if n != i+1 {
			add(n, "gap", "expected round %d", i+1)
		}
		if r.Summary.PoolDistributed > r.Summary.PoolCollected {
			add(n, "pool", "distributed %d of %d collected", r.Summary.PoolDistributed, r.Summary.PoolCollected)
		}
		if r.Stats.TotalReads < prevReads || r.Stats.TotalPublishes < prevPublishes {
			add(n, "totals", "reads %d->%d publishes %d->%d",
				prevReads, r.Stats.TotalReads, prevPublishes, r.Stats.TotalPublishes)
		}
		if r.Stats.RemainingClinics > prevRemaining {
			add(n, "opt-in", "remaining clinics rose from %d to %d", prevRemaining, r.Stats.RemainingClinics)
		}
		prevReads, prevPublishes = r.Stats.TotalReads, r.Stats.TotalPublishes
		prevRemaining = r.Stats.RemainingClinics
	}

	if run.Finished() {
		final := run.Stats.Round
		if final > run.Config.Rounds {
			add(0, "incomplete", "finished at round %d of %d", final, run.Config.Rounds)
		} else if len(rounds) != final {
			add(0, "incomplete", "%d of %d rounds archived", len(rounds), final)
		} else if len(rounds) > 0 {
			last := rounds[len(rounds)-1].Stats
			final := *run.Stats
			if last.Round != final.Round || last.TotalReads != final.TotalReads ||
				last.TotalPublishes != final.TotalPublishes || last.RemainingClinics != final.RemainingClinics {
				add(0, "final-stats", "final stats differ from round %d", last.Round)
			}
		}
	}

	return errs, nil
}

// ValidateArchive validates every run in the archive.
func ValidateArchive(ctx context.Context, s ReportStore) ([]ValidationError, error) {
	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var errs []ValidationError
	for _, run := range runs {
		runErrs, err := ValidateRun(ctx, s, run.ID)
		if err != nil {
			return nil, fmt.Errorf("validating run %s: %w", run.ID, err)
		}
		errs = append(errs, runErrs...)
	}
	return errs, nil
}
