package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvandessel/reciprocity/internal/engine"
)

func TestNewSQLiteReportStore_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")

	s, err := NewSQLiteReportStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteReportStore() error = %v", err)
	}
	defer s.Close()

	if s.Path() != path {
		t.Errorf("Path() = %s, want %s", s.Path(), path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestSQLiteReportStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := NewSQLiteReportStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteReportStore() error = %v", err)
	}
	if _, err := engine.Run(ctx, smallConfig(9), engine.RunOptions{RunID: "kept", Sink: archiveSink{s}}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err = NewSQLiteReportStore(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	run, err := s.GetRun(ctx, "kept")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if !run.Finished() || run.Stats.Round != 6 {
		t.Errorf("reopened run = %+v", run)
	}
	rounds, err := s.GetRounds(ctx, "kept")
	if err != nil {
		t.Fatalf("GetRounds() error = %v", err)
	}
	if len(rounds) != 6 {
		t.Errorf("got %d rounds after reopen, want 6", len(rounds))
	}
}

func TestSQLiteReportStore_DuplicateRound(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteReportStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteReportStore() error = %v", err)
	}
	defer s.Close()

	if err := s.CreateRun(ctx, engine.RunInfo{ID: "r", Config: smallConfig(1)}); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	round := engine.RoundReport{RunID: "r", Summary: engine.RoundSummary{Round: 1}}
	if err := s.SaveRound(ctx, round); err != nil {
		t.Fatalf("SaveRound() error = %v", err)
	}
	if err := s.SaveRound(ctx, round); err == nil {
		t.Error("SaveRound() accepted a duplicate round")
	}
}

func TestSQLiteReportStore_PlayerConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteReportStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteReportStore() error = %v", err)
	}
	defer s.Close()

	cfg := smallConfig(4)
	cfg.Player = engine.DefaultPlayer()
	if _, err := engine.Run(ctx, cfg, engine.RunOptions{RunID: "p", Sink: archiveSink{s}}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	run, err := s.GetRun(ctx, "p")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Config.Player == nil || run.Config.Player.QualityBias != 0.8 {
		t.Errorf("player config = %+v", run.Config.Player)
	}
	if run.Stats.Player == nil || run.Stats.Player.ID != "C000" {
		t.Errorf("player stats = %+v", run.Stats.Player)
	}
	if run.Config.Params != cfg.Params {
		t.Errorf("params = %+v, want %+v", run.Config.Params, cfg.Params)
	}
}

func TestSQLiteReportStore_Reset(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteReportStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteReportStore() error = %v", err)
	}
	defer s.Close()

	if _, err := engine.Run(ctx, smallConfig(2), engine.RunOptions{RunID: "gone", Sink: archiveSink{s}}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("ListRuns() after reset = %d runs, want 0", len(runs))
	}

	// The archive stays usable.
	if _, err := engine.Run(ctx, smallConfig(3), engine.RunOptions{RunID: "after", Sink: archiveSink{s}}); err != nil {
		t.Fatalf("Run() after reset error = %v", err)
	}
	if _, err := s.GetRun(ctx, "after"); err != nil {
		t.Errorf("GetRun() after reset error = %v", err)
	}
}
