package models

import "fmt"

// Clinic is one participant in the data-sharing economy.
// Clinics are created once per run and mutated in place by the round engine.
type Clinic struct {
	// Identity, zero-padded ordinal (e.g. "C007")
	ID string `json:"id" yaml:"id"`

	// Credits is the clinic's balance. Never negative.
	Credits int `json:"credits" yaml:"credits"`

	// Reputation starts at 1.0 and only ever decays on lost disputes
	Reputation float64 `json:"reputation" yaml:"reputation"`

	// OptedIn is false once the clinic has left; there is no way back in
	OptedIn bool `json:"opted_in" yaml:"opted_in"`

	// SharePropensity (0.0 - 1.0) is the automatic publish probability
	SharePropensity float64 `json:"share_propensity" yaml:"share_propensity"`

	// Archetype flags, drawn once at creation. Mutually exclusive.
	FreeRide   bool `json:"free_ride" yaml:"free_ride"`
	LowQuality bool `json:"low_quality" yaml:"low_quality"`

	// Contrib counts successful publishes in the current round only.
	// It is reset to zero at the end of every round.
	Contrib int `json:"contrib" yaml:"contrib"`

	// IsPlayer marks the designated clinic whose actions may be externally driven
	IsPlayer bool `json:"is_player,omitempty" yaml:"is_player,omitempty"`

	// Cumulative counters. Reads only counts reads of subjects that had history.
	Reads     int `json:"reads" yaml:"reads"`
	Publishes int `json:"publishes" yaml:"publishes"`
}

// Archetype returns a short label for the clinic's behavior profile.
func (c *Clinic) Archetype() string {
	switch {
	case c.IsPlayer:
		return "player"
	case c.FreeRide:
		return "free-rider"
	case c.LowQuality:
		return "low-quality"
	default:
		return "cooperative"
	}
}

// ClinicID formats the display identifier for the clinic at index i.
func ClinicID(i int) string {
	return fmt.Sprintf("C%03d", i)
}

// PatientID formats the identifier for the patient at index i.
func PatientID(i int) string {
	return fmt.Sprintf("P%04d", i)
}
