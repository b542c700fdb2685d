package main

import (
	"github.com/spf13/cobra"

	"github.com/nvandessel/reciprocity/internal/engine"
)

// addSimulationFlags registers the flags that override the configured run.
func addSimulationFlags(cmd *cobra.Command) {
	cmd.Flags().Int("clinics", 0, "Number of clinics")
	cmd.Flags().Int("patients", 0, "Number of patients")
	cmd.Flags().Int("rounds", 0, "Number of rounds")
	cmd.Flags().Int("starter-credits", 0, "Credits every clinic starts with")
	cmd.Flags().Float64("free-riders", 0, "Probability (0.0-1.0) a clinic is a free-rider")
	cmd.Flags().Float64("low-quality", 0, "Probability (0.0-1.0) a cooperative clinic publishes low-quality records")
	cmd.Flags().Uint32("seed", 0, "Random seed")
	cmd.Flags().Bool("player", false, "Designate clinic C000 as the player")
	cmd.Flags().Float64("share-propensity", 0, "Player publish propensity (0.0-1.0)")
	cmd.Flags().Float64("quality-bias", 0, "Player probability (0.0-1.0) of publishing high-quality records")
}

// overridesFromFlags collects the simulation flags the user set.
func overridesFromFlags(cmd *cobra.Command) engine.Overrides {
	var o engine.Overrides
	flags := cmd.Flags()

	intFlag := func(name string) *int {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetInt(name)
		return &v
	}
	floatFlag := func(name string) *float64 {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetFloat64(name)
		return &v
	}

	o.Clinics = intFlag("clinics")
	o.Patients = intFlag("patients")
	o.Rounds = intFlag("rounds")
	o.StarterCredits = intFlag("starter-credits")
	o.FreeRiderFraction = floatFlag("free-riders")
	o.LowQualityFraction = floatFlag("low-quality")
	o.SharePropensity = floatFlag("share-propensity")
	o.QualityBias = floatFlag("quality-bias")

	if flags.Changed("seed") {
		v, _ := flags.GetUint32("seed")
		o.Seed = &v
	}
	if flags.Changed("player") {
		v, _ := flags.GetBool("player")
		o.Player = &v
	}
	return o
}
