// Package store defines the ReportStore interface for archiving simulation
// reports. Only reports are stored; a run's state is never restored from the
// archive.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/stats"
)

// ErrRunNotFound is returned when a run id is not in the archive.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one archived run.
type RunRecord struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Seed      uint32        `json:"seed"`
	Config    engine.Config `json:"config"`

	// Stats holds the final statistics. Nil until the run finishes or its
	// session is closed.
	Stats *stats.Stats `json:"stats,omitempty"`
}

// Finished reports whether the run has final statistics.
func (r RunRecord) Finished() bool {
	return r.Stats != nil
}

// Closed reports whether the run was finished before its last round, as
// happens when a driven session is closed or expires.
func (r RunRecord) Closed() bool {
	return r.Stats != nil && r.Stats.Round < r.Config.Rounds
}

// RoundRecord is one archived round report.
type RoundRecord struct {
	RunID   string              `json:"run_id"`
	Summary engine.RoundSummary `json:"summary"`
	Stats   stats.Stats         `json:"stats"`
}

// ReportStore archives run and round reports.
type ReportStore interface {
	// CreateRun records the start of a run. The id must be unique.
	CreateRun(ctx context.Context, info engine.RunInfo) error

	// SaveRound appends a round report to an existing run.
	SaveRound(ctx context.Context, r engine.RoundReport) error

	// FinishRun stores the final statistics of an existing run.
	FinishRun(ctx context.Context, r engine.RunReport) error

	// GetRun returns a run by id, or ErrRunNotFound.
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns runs newest first. A limit <= 0 returns every run.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// GetRounds returns a run's rounds in round order.
	GetRounds(ctx context.Context, runID string) ([]RoundRecord, error)

	// DeleteRun removes a run and its rounds.
	DeleteRun(ctx context.Context, id string) error

	Close() error
}
