package engine

import (
	"fmt"

	"github.com/nvandessel/reciprocity/internal/constants"
)

// Limits bound the size of runs accepted from remote callers. A zero field
// leaves that dimension unbounded.
type Limits struct {
	MaxClinics  int `json:"max_clinics" yaml:"max_clinics"`
	MaxPatients int `json:"max_patients" yaml:"max_patients"`
	MaxRounds   int `json:"max_rounds" yaml:"max_rounds"`
}

// DefaultLimits returns the limits the servers use when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxClinics:  constants.DefaultMaxClinics,
		MaxPatients: constants.DefaultMaxPatients,
		MaxRounds:   constants.DefaultMaxRounds,
	}
}

// Check rejects a configuration larger than l. Errors wrap
// ErrInvalidConfiguration. Check runs before NewState so an oversized run
// never allocates its population.
func (l Limits) Check(cfg Config) error {
	checks := []struct {
		name  string
		value int
		max   int
	}{
		{"clinic count", cfg.Clinics, l.MaxClinics},
		{"patient count", cfg.Patients, l.MaxPatients},
		{"round count", cfg.Rounds, l.MaxRounds},
	}
	for _, c := range checks {
		if c.max > 0 && c.value > c.max {
			return fmt.Errorf("%w: %s %d exceeds the limit of %d", ErrInvalidConfiguration, c.name, c.value, c.max)
		}
	}
	return nil
}
