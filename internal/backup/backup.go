// Package backup exports the report archive to portable, checksummed files
// and restores it from them.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/store"
)

// Snapshot is the payload of a backup file: every archived run with its
// rounds.
type Snapshot struct {
	Version   int         `json:"version"`
	CreatedAt time.Time   `json:"created_at"`
	Runs      []RunBundle `json:"runs"`
}

// RunBundle is one archived run and its rounds in round order.
type RunBundle struct {
	Run    store.RunRecord     `json:"run"`
	Rounds []store.RoundRecord `json:"rounds"`
}

// RoundCount returns the number of rounds across every run.
func (s *Snapshot) RoundCount() int {
	n := 0
	for _, b := range s.Runs {
		n += len(b.Rounds)
	}
	return n
}

// DefaultBackupDir returns the default backup directory (~/.reciprocity/backups/).
func DefaultBackupDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, store.ArchiveDirName, "backups"), nil
}

// Backup writes every run in archive to outputPath.
func Backup(ctx context.Context, archive store.ReportStore, outputPath string) (*Snapshot, error) {
	runs, err := archive.ListRuns(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	snap := &Snapshot{
		Version:   FormatVersion,
		CreatedAt: time.Now().UTC(),
		Runs:      make([]RunBundle, 0, len(runs)),
	}
	// Oldest first so a restore recreates runs in their original order.
	for i := len(runs) - 1; i >= 0; i-- {
		rounds, err := archive.GetRounds(ctx, runs[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get rounds for %s: %w", runs[i].ID, err)
		}
		snap.Runs = append(snap.Runs, RunBundle{Run: runs[i], Rounds: rounds})
	}

	if err := WriteFile(outputPath, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// RestoreMode controls how restore handles runs already in the archive.
type RestoreMode string

const (
	// RestoreMerge skips runs whose id is already archived (default).
	RestoreMerge RestoreMode = "merge"
	// RestoreReplace deletes an archived run before restoring its backup copy.
	RestoreReplace RestoreMode = "replace"
)

// RestoreResult contains statistics about the restore operation.
type RestoreResult struct {
	RunsRestored   int `json:"runs_restored"`
	RunsSkipped    int `json:"runs_skipped"`
	RoundsRestored int `json:"rounds_restored"`
}

// Restore imports every run in the backup at inputPath into archive.
func Restore(ctx context.Context, archive store.ReportStore, inputPath string, mode RestoreMode) (*RestoreResult, error) {
	snap, err := ReadFile(inputPath)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{}
	for _, b := range snap.Runs {
		_, err := archive.GetRun(ctx, b.Run.ID)
		switch {
		case err == nil && mode == RestoreMerge:
			result.RunsSkipped++
			continue
		case err == nil:
			if err := archive.DeleteRun(ctx, b.Run.ID); err != nil {
				return result, fmt.Errorf("failed to replace run %s: %w", b.Run.ID, err)
			}
		case !errors.Is(err, store.ErrRunNotFound):
			return result, fmt.Errorf("failed to check run %s: %w", b.Run.ID, err)
		}

		if err := restoreRun(ctx, archive, b); err != nil {
			return result, err
		}
		result.RunsRestored++
		result.RoundsRestored += len(b.Rounds)
	}
	return result, nil
}

func restoreRun(ctx context.Context, archive store.ReportStore, b RunBundle) error {
	info := engine.RunInfo{ID: b.Run.ID, StartedAt: b.Run.CreatedAt, Config: b.Run.Config}
	if err := archive.CreateRun(ctx, info); err != nil {
		return fmt.Errorf("failed to restore run %s: %w", b.Run.ID, err)
	}
	for _, r := range b.Rounds {
		report := engine.RoundReport{RunID: b.Run.ID, Summary: r.Summary, Stats: r.Stats}
		if err := archive.SaveRound(ctx, report); err != nil {
			return fmt.Errorf("failed to restore round %d of run %s: %w", r.Summary.Round, b.Run.ID, err)
		}
	}
	if b.Run.Stats != nil {
		report := engine.RunReport{RunID: b.Run.ID, Config: b.Run.Config, Stats: *b.Run.Stats}
		if err := archive.FinishRun(ctx, report); err != nil {
			return fmt.Errorf("failed to restore final stats of run %s: %w", b.Run.ID, err)
		}
	}
	return nil
}

// GenerateBackupPath creates a timestamped backup filename in the given directory.
func GenerateBackupPath(dir string) string {
	ts := time.Now().Format("20060102-150405")
	return filepath.Join(dir, fmt.Sprintf("%s%s%s", filePrefix, ts, fileExt))
}
