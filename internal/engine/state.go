// Package engine runs the clinic data-sharing economy one round at a time.
//
// A State owns everything a run mutates: clinics, patient histories, the
// round pool and the single random source. Every draw comes from that one
// source in a fixed order (population order within a round), which makes a
// run fully reproducible from its Config. A State is not safe for concurrent
// use; callers that share one must serialize access.
//
// Usage:
//
//	s, err := engine.NewState(cfg)
//	for !s.Done() {
//	    if err := s.Step(engine.Automatic{}); err != nil { ... }
//	}
//	fmt.Println(s.BuildStats())
package engine

import (
	"fmt"

	"github.com/nvandessel/reciprocity/internal/economy"
	"github.com/nvandessel/reciprocity/internal/models"
	"github.com/nvandessel/reciprocity/internal/population"
	"github.com/nvandessel/reciprocity/internal/random"
	"github.com/nvandessel/reciprocity/internal/stats"
)

// RoundSummary describes the most recently completed round.
type RoundSummary struct {
	Round           int `json:"round"`
	PoolCollected   int `json:"pool_collected"`
	PoolDistributed int `json:"pool_distributed"`
	Reads           int `json:"reads"`
	Publishes       int `json:"publishes"`
	Disputes        int `json:"disputes"`
	OptOuts         int `json:"opt_outs"`
}

// State is one run of the economy.
type State struct {
	cfg    Config
	params economy.Params
	src    *random.LCG

	clinics   []*models.Clinic
	player    *models.Clinic
	patients  []string
	histories map[string][]models.Record
	accessLog []models.AccessEntry

	pool           int
	round          int
	totalReads     int
	totalPublishes int
	last           RoundSummary

	observer Observer
}

// NewState validates cfg and builds the initial population.
func NewState(cfg Config) (*State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.clone()

	src := random.NewLCG(cfg.Seed)
	pop, err := population.Build(cfg.populationSpec(), src)
	if err != nil {
		return nil, err
	}

	s := &State{
		cfg:       cfg,
		params:    cfg.Params,
		src:       src,
		clinics:   pop.Clinics,
		patients:  pop.Patients,
		histories: pop.Histories,
	}
	if cfg.Player != nil {
		s.player = pop.Clinics[0]
	}
	return s, nil
}

// SetObserver registers o to receive round events. Pass nil to stop.
func (s *State) SetObserver(o Observer) {
	s.observer = o
}

// Config returns the run configuration.
func (s *State) Config() Config {
	return s.cfg.clone()
}

// Round returns the number of completed rounds.
func (s *State) Round() int {
	return s.round
}

// Done reports whether the configured number of rounds has run.
func (s *State) Done() bool {
	return s.round >= s.cfg.Rounds
}

// HasPlayer reports whether the run has a designated clinic.
func (s *State) HasPlayer() bool {
	return s.player != nil
}

// LastRound summarizes the most recently completed round. It is the zero
// value before the first round.
func (s *State) LastRound() RoundSummary {
	return s.last
}

// Clinics returns copies of every clinic in population order.
func (s *State) Clinics() []models.Clinic {
	out := make([]models.Clinic, len(s.clinics))
	for i, c := range s.clinics {
		out[i] = *c
	}
	return out
}

// Patients returns every patient identifier.
func (s *State) Patients() []string {
	return append([]string(nil), s.patients...)
}

// History returns a copy of a patient's records in publication order.
func (s *State) History(patientID string) []models.Record {
	return append([]models.Record(nil), s.histories[patientID]...)
}

// AccessLog returns a copy of every paid read so far.
func (s *State) AccessLog() []models.AccessEntry {
	return append([]models.AccessEntry(nil), s.accessLog...)
}

// BuildStats summarizes the current population.
func (s *State) BuildStats() stats.Stats {
	return stats.Aggregate(s.clinics, stats.Totals{
		Round:     s.round,
		Reads:     s.totalReads,
		Publishes: s.totalPublishes,
	})
}

// Step runs one round. When the run has a designated clinic, p decides its
// actions first; otherwise p is not consulted and may be nil.
//
// Step returns ErrRoundLimit once every configured round has run and
// ErrMalformedActions when a designated clinic exists but p is nil or yields
// invalid actions. In both cases the state is unchanged.
func (s *State) Step(p Policy) error {
	if s.Done() {
		return fmt.Errorf("%w: %d of %d rounds already run", ErrRoundLimit, s.round, s.cfg.Rounds)
	}

	var actions *models.Actions
	if s.player != nil {
		if p == nil {
			return fmt.Errorf("%w: no actions supplied for designated clinic %s", ErrMalformedActions, s.player.ID)
		}
		a, err := p.Decide(s)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedActions, err)
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedActions, err)
		}
		actions = &a
	}

	s.stepRound(actions)
	return nil
}

// StepRound runs one round with the designated clinic's actions supplied by
// the caller.
func (s *State) StepRound(a models.Actions) error {
	return s.Step(Driven(a))
}
