package simulation

import (
	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/models"
	"github.com/nvandessel/reciprocity/internal/stats"
	"github.com/nvandessel/reciprocity/internal/store"
)

// ActionFunc decides the designated clinic's actions before a round.
// round is the number of rounds already completed. Returning nil falls back
// to the automatic policy for that round.
type ActionFunc func(round int, s *engine.State) *models.Actions

// Scenario defines a complete simulation experiment.
type Scenario struct {
	// Name identifies the scenario in failure messages.
	Name string

	// Config is the run configuration. It must pass Config.Validate.
	Config engine.Config

	// Actions drives the designated clinic. Nil uses the automatic policy
	// for every round. Ignored when Config has no player.
	Actions ActionFunc

	// Archive writes every round report to the runner's SQLite store.
	Archive bool

	// TrackPatients lists patient ids whose histories are captured after
	// every round. Empty captures every patient.
	TrackPatients []string
}

// RoundSnapshot captures the observable state after one round.
type RoundSnapshot struct {
	// Index is the 1-based round number.
	Index int

	Summary engine.RoundSummary
	Stats   stats.Stats

	// Clinics are copies of every clinic after the round, in population order.
	Clinics []models.Clinic

	// Events are the round's events in emission order.
	Events []engine.Event

	// Histories maps tracked patient ids to their records after the round.
	Histories map[string][]models.Record
}

// SimulationResult holds the full output of a scenario run.
type SimulationResult struct {
	Scenario string

	// Initial are copies of every clinic before the first round.
	Initial []models.Clinic

	// InitialHistories are the tracked histories before the first round.
	InitialHistories map[string][]models.Record

	Rounds []RoundSnapshot
	Final  stats.Stats

	// State is the finished run, for ad hoc inspection.
	State *engine.State

	// RunID is set when the scenario was archived.
	RunID string

	// Store is the runner's archive.
	Store store.ReportStore
}

// ClinicAt returns the snapshot of clinic id after round index (1-based).
// Index 0 returns the initial clinic.
func (r SimulationResult) ClinicAt(index int, id string) (models.Clinic, bool) {
	clinics := r.Initial
	if index > 0 {
		if index > len(r.Rounds) {
			return models.Clinic{}, false
		}
		clinics = r.Rounds[index-1].Clinics
	}
	for _, c := range clinics {
		if c.ID == id {
			return c, true
		}
	}
	return models.Clinic{}, false
}

// EventsOfKind returns every event of kind across the run.
func (r SimulationResult) EventsOfKind(kind engine.EventKind) []engine.Event {
	var out []engine.Event
	for _, rs := range r.Rounds {
		for _, e := range rs.Events {
			if e.Kind == kind {
				out = append(out, e)
			}
		}
	}
	return out
}
