package engine

import (
	"fmt"

	"github.com/nvandessel/reciprocity/internal/constants"
	"github.com/nvandessel/reciprocity/internal/economy"
	"github.com/nvandessel/reciprocity/internal/population"
)

// Config fixes everything about a run. It is copied into the state at
// creation and never modified afterwards.
type Config struct {
	Clinics            int     `json:"clinics" yaml:"clinics"`
	Patients           int     `json:"patients" yaml:"patients"`
	Rounds             int     `json:"rounds" yaml:"rounds"`
	StarterCredits     int     `json:"starter_credits" yaml:"starter_credits"`
	FreeRiderFraction  float64 `json:"free_rider_fraction" yaml:"free_rider_fraction"`
	LowQualityFraction float64 `json:"low_quality_fraction" yaml:"low_quality_fraction"`
	Seed               uint32  `json:"seed" yaml:"seed"`

	// Player enables the designated clinic when non-nil.
	Player *population.Player `json:"player,omitempty" yaml:"player,omitempty"`

	Params economy.Params `json:"params" yaml:"params"`
}

// DefaultConfig returns the reference run: 200 clinics, 400 patients,
// 45 rounds, seed 7 and the reference economy.
func DefaultConfig() Config {
	return Config{
		Clinics:            constants.DefaultClinics,
		Patients:           constants.DefaultPatients,
		Rounds:             constants.DefaultRounds,
		StarterCredits:     constants.DefaultStarterCredits,
		FreeRiderFraction:  constants.DefaultFreeRiderFraction,
		LowQualityFraction: constants.DefaultLowQualityFraction,
		Seed:               constants.DefaultSeed,
		Params:             economy.DefaultParams(),
	}
}

// DefaultPlayer returns the designated clinic settings used when one is
// enabled without explicit values.
func DefaultPlayer() *population.Player {
	return &population.Player{
		SharePropensity: constants.DefaultPlayerSharePropensity,
		QualityBias:     constants.DefaultPlayerQualityBias,
	}
}

// Validate checks the configuration. Every error wraps ErrInvalidConfiguration.
func (c Config) Validate() error {
	if err := c.populationSpec().Validate(); err != nil {
		return err
	}
	if c.Rounds < 0 {
		return fmt.Errorf("%w: round count must be non-negative, got %d", ErrInvalidConfiguration, c.Rounds)
	}
	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return nil
}

func (c Config) populationSpec() population.Spec {
	return population.Spec{
		Clinics:            c.Clinics,
		Patients:           c.Patients,
		StarterCredits:     c.StarterCredits,
		FreeRiderFraction:  c.FreeRiderFraction,
		LowQualityFraction: c.LowQualityFraction,
		Player:             c.Player,
	}
}

// clone returns a copy that shares no pointers with c.
func (c Config) clone() Config {
	if c.Player != nil {
		p := *c.Player
		c.Player = &p
	}
	return c
}
