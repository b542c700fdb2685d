// Package population builds the initial clinics and patients of a run.
package population

import (
	"errors"
	"fmt"

	"github.com/nvandessel/reciprocity/internal/constants"
	"github.com/nvandessel/reciprocity/internal/models"
	"github.com/nvandessel/reciprocity/internal/random"
)

// ErrInvalidConfiguration is returned for population settings that cannot
// produce a run. No state is created when it is returned.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Player configures the designated clinic.
type Player struct {
	SharePropensity float64 `json:"share_propensity" yaml:"share_propensity"`
	QualityBias     float64 `json:"quality_bias" yaml:"quality_bias"`
}

// Spec describes the population to build.
type Spec struct {
	Clinics            int
	Patients           int
	StarterCredits     int
	FreeRiderFraction  float64
	LowQualityFraction float64

	// Player enables the designated clinic at index 0 when non-nil.
	Player *Player
}

// Population is the initial state of a run.
type Population struct {
	// Clinics in creation order. Index 0 is the designated clinic when enabled.
	Clinics []*models.Clinic

	// Patients holds every patient identifier, in index order.
	Patients []string

	// Histories maps each patient to its publication records. Starts empty.
	Histories map[string][]models.Record
}

// Validate checks the spec without building anything.
func (s Spec) Validate() error {
	if s.Clinics <= 0 {
		return fmt.Errorf("%w: clinic count must be positive, got %d", ErrInvalidConfiguration, s.Clinics)
	}
	if s.Patients <= 0 {
		return fmt.Errorf("%w: patient count must be positive, got %d", ErrInvalidConfiguration, s.Patients)
	}
	if s.StarterCredits < 0 {
		return fmt.Errorf("%w: starter credits must be non-negative, got %d", ErrInvalidConfiguration, s.StarterCredits)
	}
	if err := checkFraction("free_rider_fraction", s.FreeRiderFraction); err != nil {
		return err
	}
	if err := checkFraction("low_quality_fraction", s.LowQualityFraction); err != nil {
		return err
	}
	if s.Player != nil {
		if err := checkFraction("player share_propensity", s.Player.SharePropensity); err != nil {
			return err
		}
		if err := checkFraction("player quality_bias", s.Player.QualityBias); err != nil {
			return err
		}
	}
	return nil
}

func checkFraction(name string, v float64) error {
	if !(v >= 0 && v <= 1) {
		return fmt.Errorf("%w: %s must be between 0 and 1, got %v", ErrInvalidConfiguration, name, v)
	}
	return nil
}

// Build creates the clinics and patients described by spec, drawing archetypes
// from src.
//
// For each clinic, in order, one draw decides free-riding and, only for
// non-free-riders, a second draw decides low quality. The designated clinic
// consumes its draws like any other clinic and then has its archetype
// overridden, so enabling it never shifts the draws of the clinics after it.
func Build(spec Spec, src random.Source) (*Population, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	clinics := make([]*models.Clinic, spec.Clinics)
	for i := range clinics {
		freeRide := src.Float64() < spec.FreeRiderFraction
		lowQuality := !freeRide && src.Float64() < spec.LowQualityFraction

		propensity := constants.CooperativeSharePropensity
		if freeRide {
			propensity = constants.FreeRiderSharePropensity
		}

		c := &models.Clinic{
			ID:              models.ClinicID(i),
			Credits:         spec.StarterCredits,
			Reputation:      1.0,
			OptedIn:         true,
			SharePropensity: propensity,
			FreeRide:        freeRide,
			LowQuality:      lowQuality,
		}

		if i == 0 && spec.Player != nil {
			c.IsPlayer = true
			c.FreeRide = false
			c.LowQuality = false
			c.SharePropensity = spec.Player.SharePropensity
		}

		clinics[i] = c
	}

	patients := make([]string, spec.Patients)
	for i := range patients {
		patients[i] = models.PatientID(i)
	}

	return &Population{
		Clinics:   clinics,
		Patients:  patients,
		Histories: make(map[string][]models.Record),
	}, nil
}
