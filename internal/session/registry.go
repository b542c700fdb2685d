// Package session keeps driven runs open between requests. A driven run is
// created once and advanced one round per call, with the designated clinic's
// actions supplied by the caller or by the automatic policy.
//
// All public methods are safe for concurrent use. Steps on one session are
// serialized; steps on different sessions run in parallel.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/reciprocity/internal/constants"
	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/models"
	"github.com/nvandessel/reciprocity/internal/stats"
)

// ErrNotFound is returned for an unknown or closed session id.
var ErrNotFound = errors.New("session not found")

// ErrCapacity is returned by Create when the registry is full.
var ErrCapacity = errors.New("session capacity reached")

// DefaultMaxSessions is used when Options.MaxSessions is zero.
const DefaultMaxSessions = 64

// DefaultIdleTTL is used when Options.IdleTTL is zero.
const DefaultIdleTTL = 30 * time.Minute

// Options configure a Registry.
type Options struct {
	// MaxSessions caps concurrently open sessions.
	MaxSessions int

	// IdleTTL is how long a session may go unused before Create may evict
	// it to make room. Negative disables eviction.
	IdleTTL time.Duration

	// Sink receives the reports of every session, keyed by session id.
	Sink engine.Sink

	// Logger receives operational output.
	Logger *slog.Logger
}

// Info describes an open session.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Round     int       `json:"round"`
	Rounds    int       `json:"rounds"`
	Done      bool      `json:"done"`
	HasPlayer bool      `json:"has_player"`
}

// StepResult is the outcome of one round.
type StepResult struct {
	Summary engine.RoundSummary `json:"summary"`
	Stats   stats.Stats         `json:"stats"`
	Done    bool                `json:"done"`

	// Mode reports how the designated clinic's actions were produced.
	Mode constants.Mode `json:"mode"`
}

type entry struct {
	mu        sync.Mutex
	id        string
	createdAt time.Time
	state     *engine.State
	started   time.Time
	lastUsed  time.Time

	// closed is set once the session leaves the registry. A step already
	// waiting on mu must not advance a closed run.
	closed bool
}

func (e *entry) info() Info {
	cfg := e.state.Config()
	return Info{
		ID:        e.id,
		CreatedAt: e.createdAt,
		Round:     e.state.Round(),
		Rounds:    cfg.Rounds,
		Done:      e.state.Done(),
		HasPlayer: e.state.HasPlayer(),
	}
}

// Registry holds open sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	max      int
	idleTTL  time.Duration
	sink     engine.Sink
	logger   *slog.Logger
	nowFunc  func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.IdleTTL == 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		sessions: make(map[string]*entry),
		max:      opts.MaxSessions,
		idleTTL:  opts.IdleTTL,
		sink:     opts.Sink,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// Create validates cfg and opens a new session. When the registry is full,
// sessions idle for at least the idle TTL are closed to make room.
func (r *Registry) Create(ctx context.Context, cfg engine.Config) (Info, error) {
	st, err := engine.NewState(cfg)
	if err != nil {
		return Info{}, err
	}

	r.mu.Lock()
	now := r.nowFunc()
	var evicted []*entry
	if len(r.sessions) >= r.max {
		evicted = r.evictIdleLocked(now)
	}
	if len(r.sessions) >= r.max {
		r.mu.Unlock()
		r.expire(ctx, evicted)
		return Info{}, fmt.Errorf("%w: %d sessions open", ErrCapacity, r.max)
	}
	e := &entry{
		id:        uuid.New().String(),
		createdAt: now.UTC(),
		state:     st,
		started:   now,
		lastUsed:  now,
	}
	r.sessions[e.id] = e
	r.mu.Unlock()
	r.expire(ctx, evicted)

	if r.sink != nil {
		info := engine.RunInfo{ID: e.id, StartedAt: e.createdAt, Config: st.Config()}
		if err := r.sink.RunStarted(ctx, info); err != nil {
			r.logger.Warn("session report failed", "session", e.id, "error", err)
		}
	}
	r.logger.Debug("session created", "session", e.id, "seed", cfg.Seed, "rounds", cfg.Rounds)

	return e.info(), nil
}

// evictIdleLocked removes every session unused for at least the idle TTL and
// returns them. The caller holds r.mu.
func (r *Registry) evictIdleLocked(now time.Time) []*entry {
	if r.idleTTL < 0 {
		return nil
	}
	var evicted []*entry
	for id, e := range r.sessions {
		e.mu.Lock()
		idle := now.Sub(e.lastUsed) >= r.idleTTL
		e.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			evicted = append(evicted, e)
		}
	}
	return evicted
}

func (r *Registry) expire(ctx context.Context, entries []*entry) {
	for _, e := range entries {
		r.logger.Debug("session expired", "session", e.id)
		r.close(ctx, e)
	}
}

// close marks e closed and, if its run has rounds left, reports it finished
// with the statistics it reached.
func (r *Registry) close(ctx context.Context, e *entry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	if r.sink == nil || e.state.Done() {
		return
	}
	final := engine.RunReport{
		RunID:    e.id,
		Config:   e.state.Config(),
		Stats:    e.state.BuildStats(),
		Duration: r.nowFunc().Sub(e.started),
	}
	if err := r.sink.RunFinished(ctx, final); err != nil {
		r.logger.Warn("session report failed", "session", e.id, "error", err)
	}
}

func (r *Registry) get(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// Step advances a session by one round. When actions is nil the designated
// clinic, if any, follows the automatic policy.
func (r *Registry) Step(ctx context.Context, id string, actions *models.Actions) (StepResult, error) {
	e, err := r.get(id)
	if err != nil {
		return StepResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return StepResult{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.lastUsed = r.nowFunc()

	var policy engine.Policy = engine.Automatic{}
	mode := constants.ModeAuto
	if actions != nil && e.state.HasPlayer() {
		policy = engine.Driven(*actions)
		mode = constants.ModeDriven
	}
	if err := e.state.Step(policy); err != nil {
		return StepResult{}, err
	}

	res := StepResult{
		Summary: e.state.LastRound(),
		Stats:   e.state.BuildStats(),
		Done:    e.state.Done(),
		Mode:    mode,
	}

	if r.sink != nil {
		report := engine.RoundReport{RunID: id, Summary: res.Summary, Stats: res.Stats}
		if err := r.sink.RoundCompleted(ctx, report); err != nil {
			r.logger.Warn("session report failed", "session", id, "round", res.Summary.Round, "error", err)
		}
		if res.Done {
			final := engine.RunReport{
				RunID:    id,
				Config:   e.state.Config(),
				Stats:    res.Stats,
				Duration: r.nowFunc().Sub(e.started),
			}
			if err := r.sink.RunFinished(ctx, final); err != nil {
				r.logger.Warn("session report failed", "session", id, "error", err)
			}
		}
	}
	return res, nil
}

// Stats returns a session's current statistics.
func (r *Registry) Stats(id string) (stats.Stats, error) {
	e, err := r.get(id)
	if err != nil {
		return stats.Stats{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = r.nowFunc()
	return e.state.BuildStats(), nil
}

// History returns a patient's records with authors removed.
func (r *Registry) History(id, patientID string) ([]models.Record, error) {
	e, err := r.get(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = r.nowFunc()

	records := e.state.History(patientID)
	for i := range records {
		records[i] = records[i].Redacted()
	}
	return records, nil
}

// Info describes one session.
func (r *Registry) Info(id string) (Info, error) {
	e, err := r.get(id)
	if err != nil {
		return Info{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info(), nil
}

// List describes every open session, oldest first.
func (r *Registry) List() []Info {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.sessions))
	for _, e := range r.sessions {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	infos := make([]Info, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		infos = append(infos, e.info())
		e.mu.Unlock()
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.Before(infos[j].CreatedAt)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// Delete closes a session. A run closed before its last round is reported
// finished with the statistics it reached.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.sessions, id)
	r.mu.Unlock()

	r.close(ctx, e)
	r.logger.Debug("session closed", "session", id)
	return nil
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
