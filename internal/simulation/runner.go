package simulation

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/models"
	"github.com/nvandessel/reciprocity/internal/store"
)

// Runner orchestrates simulation experiments against a real engine state
// and report archive.
type Runner struct {
	t     *testing.T
	store *store.SQLiteReportStore
}

// NewRunner creates a simulation runner with an isolated SQLite archive
// and sandboxed HOME directory.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	s, err := store.NewSQLiteReportStore(filepath.Join(tmpDir, "archive.db"))
	if err != nil {
		t.Fatalf("NewRunner: failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return &Runner{t: t, store: s}
}

// Store returns the runner's archive.
func (r *Runner) Store() *store.SQLiteReportStore {
	return r.store
}

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(scenario Scenario) SimulationResult {
	r.t.Helper()
	ctx := context.Background()

	s, err := engine.NewState(scenario.Config)
	if err != nil {
		r.t.Fatalf("Run(%s): invalid config: %v", scenario.Name, err)
	}

	tracked := scenario.TrackPatients
	if len(tracked) == 0 {
		tracked = s.Patients()
	}

	result := SimulationResult{
		Scenario:         scenario.Name,
		Initial:          s.Clinics(),
		InitialHistories: captureHistories(s, tracked),
		Store:            r.store,
	}

	start := time.Now()
	if scenario.Archive {
		result.RunID = uuid.New().String()
		info := engine.RunInfo{ID: result.RunID, StartedAt: start.UTC(), Config: s.Config()}
		if err := r.store.CreateRun(ctx, info); err != nil {
			r.t.Fatalf("Run(%s): archiving run start: %v", scenario.Name, err)
		}
	}

	var events []engine.Event
	s.SetObserver(engine.ObserverFunc(func(e engine.Event) {
		events = append(events, e)
	}))

	for !s.Done() {
		events = nil
		if err := s.Step(r.policy(scenario, s)); err != nil {
			r.t.Fatalf("Run(%s): round %d: %v", scenario.Name, s.Round()+1, err)
		}

		snap := RoundSnapshot{
			Index:     s.Round(),
			Summary:   s.LastRound(),
			Stats:     s.BuildStats(),
			Clinics:   s.Clinics(),
			Events:    events,
			Histories: captureHistories(s, tracked),
		}
		result.Rounds = append(result.Rounds, snap)

		if scenario.Archive {
			report := engine.RoundReport{RunID: result.RunID, Summary: snap.Summary, Stats: snap.Stats}
			if err := r.store.SaveRound(ctx, report); err != nil {
				r.t.Fatalf("Run(%s): archiving round %d: %v", scenario.Name, snap.Index, err)
			}
		}
	}
	s.SetObserver(nil)

	result.Final = s.BuildStats()
	result.State = s

	if scenario.Archive {
		report := engine.RunReport{
			RunID:    result.RunID,
			Config:   s.Config(),
			Stats:    result.Final,
			Duration: time.Since(start),
		}
		if err := r.store.FinishRun(ctx, report); err != nil {
			r.t.Fatalf("Run(%s): archiving run finish: %v", scenario.Name, err)
		}
	}

	return result
}

// policy picks the designated clinic's policy for the next round.
func (r *Runner) policy(scenario Scenario, s *engine.State) engine.Policy {
	if scenario.Actions == nil || !s.HasPlayer() {
		return engine.Automatic{}
	}
	a := scenario.Actions(s.Round(), s)
	if a == nil {
		return engine.Automatic{}
	}
	return engine.Driven(*a)
}

func captureHistories(s *engine.State, patients []string) map[string][]models.Record {
	out := make(map[string][]models.Record, len(patients))
	for _, pid := range patients {
		out[pid] = s.History(pid)
	}
	return out
}

// RunTwice executes the scenario on two fresh states and returns both
// results. Neither run is archived.
func (r *Runner) RunTwice(scenario Scenario) (SimulationResult, SimulationResult) {
	r.t.Helper()
	scenario.Archive = false
	first := r.Run(scenario)
	second := r.Run(scenario)
	return first, second
}

// String implements fmt.Stringer.
func (s RoundSnapshot) String() string {
	return fmt.Sprintf("round %d: reads=%d publishes=%d disputes=%d opt_outs=%d pool=%d/%d",
		s.Index, s.Summary.Reads, s.Summary.Publishes, s.Summary.Disputes,
		s.Summary.OptOuts, s.Summary.PoolDistributed, s.Summary.PoolCollected)
}
