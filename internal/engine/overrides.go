package engine

import "github.com/nvandessel/reciprocity/internal/population"

// Overrides is a partial Config received from a remote caller. Nil fields
// keep the base value.
type Overrides struct {
	Clinics            *int     `json:"clinics,omitempty" jsonschema:"Number of clinics"`
	Patients           *int     `json:"patients,omitempty" jsonschema:"Number of patients"`
	Rounds             *int     `json:"rounds,omitempty" jsonschema:"Number of rounds to run"`
	StarterCredits     *int     `json:"starter_credits,omitempty" jsonschema:"Credits every clinic starts with"`
	FreeRiderFraction  *float64 `json:"free_rider_fraction,omitempty" jsonschema:"Probability (0.0-1.0) a clinic is a free-rider"`
	LowQualityFraction *float64 `json:"low_quality_fraction,omitempty" jsonschema:"Probability (0.0-1.0) a cooperative clinic publishes low-quality records"`
	Seed               *uint32  `json:"seed,omitempty" jsonschema:"Random seed"`

	// Player enables or disables the designated clinic.
	Player          *bool    `json:"player,omitempty" jsonschema:"Designate clinic C000 as the externally driven player"`
	SharePropensity *float64 `json:"share_propensity,omitempty" jsonschema:"Player publish propensity (0.0-1.0)"`
	QualityBias     *float64 `json:"quality_bias,omitempty" jsonschema:"Player probability (0.0-1.0) of publishing from the high quality band"`
}

// Apply returns base with the overrides applied. Setting a player field
// implies a designated clinic unless Player is explicitly false.
func (o Overrides) Apply(base Config) Config {
	cfg := base.clone()
	if o.Clinics != nil {
		cfg.Clinics = *o.Clinics
	}
	if o.Patients != nil {
		cfg.Patients = *o.Patients
	}
	if o.Rounds != nil {
		cfg.Rounds = *o.Rounds
	}
	if o.StarterCredits != nil {
		cfg.StarterCredits = *o.StarterCredits
	}
	if o.FreeRiderFraction != nil {
		cfg.FreeRiderFraction = *o.FreeRiderFraction
	}
	if o.LowQualityFraction != nil {
		cfg.LowQualityFraction = *o.LowQualityFraction
	}
	if o.Seed != nil {
		cfg.Seed = *o.Seed
	}

	wantPlayer := cfg.Player != nil || o.SharePropensity != nil || o.QualityBias != nil
	if o.Player != nil {
		wantPlayer = *o.Player
	}
	if !wantPlayer {
		cfg.Player = nil
		return cfg
	}

	var player population.Player
	if cfg.Player != nil {
		player = *cfg.Player
	} else {
		player = *DefaultPlayer()
	}
	if o.SharePropensity != nil {
		player.SharePropensity = *o.SharePropensity
	}
	if o.QualityBias != nil {
		player.QualityBias = *o.QualityBias
	}
	cfg.Player = &player
	return cfg
}
