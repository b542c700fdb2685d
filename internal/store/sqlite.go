package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/stats"
)

// SQLiteReportStore implements ReportStore on a single SQLite file.
type SQLiteReportStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteReportStore opens (creating if needed) the archive at dbPath.
// The special path ":memory:" opens a private in-memory archive.
func NewSQLiteReportStore(dbPath string) (*SQLiteReportStore, error) {
	dsn := "file::memory:?_pragma=foreign_keys(1)"
	if dbPath != ":memory:" {
		if err := ensureParentDir(dbPath); err != nil {
			return nil, err
		}
		dsn = dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteReportStore{db: db, dbPath: dbPath}, nil
}

// Path returns the archive location.
func (s *SQLiteReportStore) Path() string {
	return s.dbPath
}

// CreateRun records the start of a run.
func (s *SQLiteReportStore) CreateRun(ctx context.Context, info engine.RunInfo) error {
	if info.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	cfg, err := json.Marshal(info.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, seed, config) VALUES (?, ?, ?, ?)`,
		info.ID, formatTime(info.StartedAt), int64(info.Config.Seed), string(cfg))
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", info.ID, err)
	}
	return nil
}

// SaveRound appends a round report to an existing run.
func (s *SQLiteReportStore) SaveRound(ctx context.Context, r engine.RoundReport) error {
	data, err := json.Marshal(r.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sum := r.Summary
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rounds (run_id, round, stats, pool_collected, pool_distributed, reads, publishes, disputes, opt_outs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, sum.Round, string(data), sum.PoolCollected, sum.PoolDistributed,
		sum.Reads, sum.Publishes, sum.Disputes, sum.OptOuts)
	if err != nil {
		return fmt.Errorf("failed to insert round %d of run %s: %w", sum.Round, r.RunID, err)
	}
	return nil
}

// FinishRun stores the final statistics of an existing run.
func (s *SQLiteReportStore) FinishRun(ctx context.Context, r engine.RunReport) error {
	data, err := json.Marshal(r.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET final_stats = ?, finished_at = ? WHERE id = ?`,
		string(data), formatTime(time.Now()), r.RunID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", r.RunID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, r.RunID)
	}
	return nil
}

// GetRun returns a run by id.
func (s *SQLiteReportStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, seed, config, final_stats FROM runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRuns returns runs newest first.
func (s *SQLiteReportStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, created_at, seed, config, final_stats FROM runs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *rec)
	}
	return runs, rows.Err()
}

// GetRounds returns a run's rounds in round order.
func (s *SQLiteReportStore) GetRounds(ctx context.Context, runID string) ([]RoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT round, stats, pool_collected, pool_distributed, reads, publishes, disputes, opt_outs
		FROM rounds WHERE run_id = ? ORDER BY round`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	var rounds []RoundRecord
	for rows.Next() {
		rec := RoundRecord{RunID: runID}
		var data string
		sum := &rec.Summary
		if err := rows.Scan(&sum.Round, &data, &sum.PoolCollected, &sum.PoolDistributed,
			&sum.Reads, &sum.Publishes, &sum.Disputes, &sum.OptOuts); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &rec.Stats); err != nil {
			return nil, fmt.Errorf("failed to decode round %d stats: %w", sum.Round, err)
		}
		rounds = append(rounds, rec)
	}
	return rounds, rows.Err()
}

// DeleteRun removes a run and, through the foreign key, its rounds.
func (s *SQLiteReportStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Reset removes every archived run and recreates an empty schema.
func (s *SQLiteReportStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ResetSchema(ctx, s.db)
}

// Close closes the database.
func (s *SQLiteReportStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		rec        RunRecord
		createdAt  string
		seed       int64
		cfg        string
		finalStats sql.NullString
	)
	if err := row.Scan(&rec.ID, &createdAt, &seed, &cfg, &finalStats); err != nil {
		return nil, err
	}

	rec.Seed = uint32(seed)
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for run %s: %w", rec.ID, err)
	}
	rec.CreatedAt = t

	if err := json.Unmarshal([]byte(cfg), &rec.Config); err != nil {
		return nil, fmt.Errorf("failed to decode config for run %s: %w", rec.ID, err)
	}
	if finalStats.Valid {
		var st stats.Stats
		if err := json.Unmarshal([]byte(finalStats.String), &st); err != nil {
			return nil, fmt.Errorf("failed to decode stats for run %s: %w", rec.ID, err)
		}
		rec.Stats = &st
	}
	return &rec, nil
}

// timeLayout has a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
