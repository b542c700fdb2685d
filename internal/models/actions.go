package models

import (
	"fmt"
	"math"
)

// Actions are one round's decisions for the designated clinic.
type Actions struct {
	Read    bool `json:"read" yaml:"read"`
	Publish bool `json:"publish" yaml:"publish"`

	// QualityBias (0.0 - 1.0) is the probability a publication is drawn from
	// the high quality band.
	QualityBias float64 `json:"quality_bias" yaml:"quality_bias"`
}

// Validate checks that the actions are well-formed.
func (a Actions) Validate() error {
	if math.IsNaN(a.QualityBias) || a.QualityBias < 0 || a.QualityBias > 1 {
		return fmt.Errorf("quality_bias must be between 0 and 1, got %v", a.QualityBias)
	}
	return nil
}
