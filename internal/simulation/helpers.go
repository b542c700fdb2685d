package simulation

import (
	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/models"
)

// SmallConfig returns a reduced economy with the reference fractions, small
// enough to snapshot every patient after every round.
func SmallConfig(seed uint32) engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Clinics = 30
	cfg.Patients = 60
	cfg.Rounds = 25
	cfg.Seed = seed
	return cfg
}

// FreeRiderConfig returns an economy in which every clinic free-rides.
func FreeRiderConfig(seed uint32) engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Clinics = 30
	cfg.Patients = 40
	cfg.Rounds = 20
	cfg.FreeRiderFraction = 1.0
	cfg.Seed = seed
	return cfg
}

// SingleClinicConfig returns a one-clinic, one-round run in which the only
// clinic is the designated one.
func SingleClinicConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Clinics = 1
	cfg.Rounds = 1
	cfg.Player = engine.DefaultPlayer()
	return cfg
}

// WithPlayer returns cfg with the default designated clinic enabled.
func WithPlayer(cfg engine.Config) engine.Config {
	cfg.Player = engine.DefaultPlayer()
	return cfg
}

// AlwaysAct reads and publishes every round with the given quality bias.
func AlwaysAct(bias float64) ActionFunc {
	return func(int, *engine.State) *models.Actions {
		return &models.Actions{Read: true, Publish: true, QualityBias: bias}
	}
}

// Idle never reads or publishes.
func Idle() ActionFunc {
	return func(int, *engine.State) *models.Actions {
		return &models.Actions{}
	}
}

// Alternate publishes on even rounds and reads on odd rounds.
func Alternate(bias float64) ActionFunc {
	return func(round int, _ *engine.State) *models.Actions {
		if round%2 == 0 {
			return &models.Actions{Publish: true, QualityBias: bias}
		}
		return &models.Actions{Read: true, QualityBias: bias}
	}
}

// AutomaticAfter drives the designated clinic with next until round limit,
// then hands it to the automatic policy.
func AutomaticAfter(limit int, next ActionFunc) ActionFunc {
	return func(round int, s *engine.State) *models.Actions {
		if round >= limit {
			return nil
		}
		return next(round, s)
	}
}
