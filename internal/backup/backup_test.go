package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/report"
	"github.com/nvandessel/reciprocity/internal/store"
)

func archivedRuns(t *testing.T, seeds ...uint32) *store.InMemoryReportStore {
	t.Helper()
	archive := store.NewInMemoryReportStore()
	for i, seed := range seeds {
		cfg := engine.DefaultConfig()
		cfg.Clinics = 12
		cfg.Patients = 20
		cfg.Rounds = 3
		cfg.Seed = seed
		opts := engine.RunOptions{RunID: string(rune('a' + i)), Sink: report.NewStoreSink(archive, false)}
		if _, err := engine.Run(context.Background(), cfg, opts); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}
	return archive
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := archivedRuns(t, 1, 2)
	path := filepath.Join(t.TempDir(), "out", "archive.bak")

	snap, err := Backup(ctx, src, path)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if len(snap.Runs) != 2 || snap.RoundCount() != 6 {
		t.Fatalf("snapshot has %d runs, %d rounds, want 2 and 6", len(snap.Runs), snap.RoundCount())
	}

	dst := store.NewInMemoryReportStore()
	res, err := Restore(ctx, dst, path, RestoreMerge)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if res.RunsRestored != 2 || res.RoundsRestored != 6 || res.RunsSkipped != 0 {
		t.Errorf("Restore = %+v", res)
	}

	for _, id := range []string{"a", "b"} {
		want, _ := src.GetRun(ctx, id)
		got, err := dst.GetRun(ctx, id)
		if err != nil {
			t.Fatalf("GetRun(%s): %v", id, err)
		}
		if got.Seed != want.Seed || !got.Finished() || got.Stats.RemainingClinics != want.Stats.RemainingClinics {
			t.Errorf("run %s = %+v, want %+v", id, got, want)
		}
		rounds, _ := dst.GetRounds(ctx, id)
		if len(rounds) != 3 {
			t.Errorf("run %s has %d rounds, want 3", id, len(rounds))
		}
	}

	issues, err := store.ValidateArchive(ctx, dst)
	if err != nil {
		t.Fatalf("ValidateArchive: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("restored archive has issues: %v", issues)
	}
}

func TestRestoreModes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "archive.bak")
	if _, err := Backup(ctx, archivedRuns(t, 1), path); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	t.Run("merge skips existing", func(t *testing.T) {
		dst := archivedRuns(t, 9)
		res, err := Restore(ctx, dst, path, RestoreMerge)
		if err != nil {
			t.Fatalf("Restore: %v", err)
		}
		if res.RunsSkipped != 1 || res.RunsRestored != 0 {
			t.Errorf("Restore = %+v, want 1 skipped", res)
		}
		run, _ := dst.GetRun(ctx, "a")
		if run.Seed != 9 {
			t.Errorf("seed = %d, want existing run kept", run.Seed)
		}
	})

	t.Run("replace overwrites existing", func(t *testing.T) {
		dst := archivedRuns(t, 9)
		res, err := Restore(ctx, dst, path, RestoreReplace)
		if err != nil {
			t.Fatalf("Restore: %v", err)
		}
		if res.RunsRestored != 1 {
			t.Errorf("Restore = %+v, want 1 restored", res)
		}
		run, _ := dst.GetRun(ctx, "a")
		if run.Seed != 1 {
			t.Errorf("seed = %d, want backup copy", run.Seed)
		}
	})
}

func TestReadFileRejectsTampering(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "archive.bak")
	if _, err := Backup(ctx, archivedRuns(t, 1), path); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if err := VerifyChecksum(path); err != nil {
		t.Fatalf("VerifyChecksum on fresh file: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)-1] ^= 0xff
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	if err := VerifyChecksum(path); err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("VerifyChecksum() error = %v, want checksum mismatch", err)
	}
	if _, err := ReadFile(path); err == nil {
		t.Error("ReadFile() accepted a tampered file")
	}
}

func TestReadHeader(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "archive.bak")
	if _, err := Backup(context.Background(), archivedRuns(t, 1, 2, 3), path); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.Version != FormatVersion || h.RunCount != 3 || h.RoundCount != 9 {
		t.Errorf("header = %+v", h)
	}

	bad := filepath.Join(dir, "bad.bak")
	if err := os.WriteFile(bad, []byte(`{"version":99}`+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadHeader(bad); err == nil || !strings.Contains(err.Error(), "unsupported backup version") {
		t.Errorf("ReadHeader() error = %v, want unsupported version", err)
	}
}

func TestGenerateBackupPath(t *testing.T) {
	path := GenerateBackupPath("/tmp/backups")
	if filepath.Dir(path) != "/tmp/backups" {
		t.Errorf("dir = %s", filepath.Dir(path))
	}
	if !isBackupFile(filepath.Base(path)) {
		t.Errorf("%s is not recognized as a backup file", path)
	}
	if _, err := time.Parse("20060102-150405", strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), filePrefix), fileExt)); err != nil {
		t.Errorf("timestamp: %v", err)
	}
}
