// Package stats reduces a population into the summary figures reported after
// a run or after each round.
package stats

import "github.com/nvandessel/reciprocity/internal/models"

// Stats summarizes the population at a round boundary.
type Stats struct {
	Round            int     `json:"round"`
	OptInRate        float64 `json:"opt_in_rate"`
	RemainingClinics int     `json:"remaining_clinics"`
	AvgCredits       float64 `json:"avg_credits"`
	AvgReputation    float64 `json:"avg_reputation"`
	TotalReads       int     `json:"total_reads"`
	TotalPublishes   int     `json:"total_publishes"`

	// Player is set only when the run has a designated clinic.
	Player *PlayerStats `json:"player,omitempty"`
}

// PlayerStats reports the designated clinic individually.
type PlayerStats struct {
	ID         string  `json:"id"`
	Credits    int     `json:"credits"`
	Reputation float64 `json:"reputation"`
	OptedIn    bool    `json:"opted_in"`
	Reads      int     `json:"reads"`
	Publishes  int     `json:"publishes"`
}

// Totals are the cumulative run counters kept by the engine.
type Totals struct {
	Round     int
	Reads     int
	Publishes int
}

// Aggregate computes Stats for clinics. Averages are taken over every clinic,
// including those that have opted out. It does not modify its inputs.
func Aggregate(clinics []*models.Clinic, totals Totals) Stats {
	s := Stats{
		Round:          totals.Round,
		TotalReads:     totals.Reads,
		TotalPublishes: totals.Publishes,
	}
	if len(clinics) == 0 {
		return s
	}

	var credits, reputation float64
	for _, c := range clinics {
		if c.OptedIn {
			s.RemainingClinics++
		}
		credits += float64(c.Credits)
		reputation += c.Reputation

		if c.IsPlayer && s.Player == nil {
			s.Player = &PlayerStats{
				ID:         c.ID,
				Credits:    c.Credits,
				Reputation: c.Reputation,
				OptedIn:    c.OptedIn,
				Reads:      c.Reads,
				Publishes:  c.Publishes,
			}
		}
	}

	n := float64(len(clinics))
	s.OptInRate = float64(s.RemainingClinics) / n
	s.AvgCredits = credits / n
	s.AvgReputation = reputation / n
	return s
}
