// Package economy defines the rules of the credit economy: costs, rewards,
// penalties and behavioral probabilities. A Params value is fixed for the
// duration of a run.
package economy

import (
	"fmt"

	"github.com/nvandessel/reciprocity/internal/constants"
)

// Params holds every tunable rule of the economy.
// Amounts are whole credits; probabilities and thresholds lie in [0, 1].
type Params struct {
	ReadCost         int     `json:"read_cost" yaml:"read_cost"`
	PublishReward    int     `json:"publish_reward" yaml:"publish_reward"`
	PublishStake     int     `json:"publish_stake" yaml:"publish_stake"`
	DecayPerRound    int     `json:"decay_per_round" yaml:"decay_per_round"`
	MinCreditsToRead int     `json:"min_credits_to_read" yaml:"min_credits_to_read"`
	SlashAmount      int     `json:"slash_amount" yaml:"slash_amount"`
	PoolMatchRate    float64 `json:"pool_match_rate" yaml:"pool_match_rate"`

	DisputeProbability      float64 `json:"dispute_probability" yaml:"dispute_probability"`
	DisputeQualityThreshold float64 `json:"dispute_quality_threshold" yaml:"dispute_quality_threshold"`
	ReputationSlashFactor   float64 `json:"reputation_slash_factor" yaml:"reputation_slash_factor"`

	AutoReadProbability          float64 `json:"auto_read_probability" yaml:"auto_read_probability"`
	LowBalancePublishThreshold   int     `json:"low_balance_publish_threshold" yaml:"low_balance_publish_threshold"`
	OptOutBalanceThreshold       int     `json:"opt_out_balance_threshold" yaml:"opt_out_balance_threshold"`
	OptOutProbability            float64 `json:"opt_out_probability" yaml:"opt_out_probability"`
	OptOutReputationThreshold    float64 `json:"opt_out_reputation_threshold" yaml:"opt_out_reputation_threshold"`
	LowQualityLowBandProbability float64 `json:"low_quality_low_band_probability" yaml:"low_quality_low_band_probability"`
}

// DefaultParams returns the reference economy.
func DefaultParams() Params {
	return Params{
		ReadCost:         constants.ReadCost,
		PublishReward:    constants.PublishReward,
		PublishStake:     constants.PublishStake,
		DecayPerRound:    constants.DecayPerRound,
		MinCreditsToRead: constants.MinCreditsToRead,
		SlashAmount:      constants.SlashAmount,
		PoolMatchRate:    constants.PoolMatchRate,

		DisputeProbability:      constants.DisputeProbability,
		DisputeQualityThreshold: constants.DisputeQualityThreshold,
		ReputationSlashFactor:   constants.ReputationSlashFactor,

		AutoReadProbability:          constants.AutoReadProbability,
		LowBalancePublishThreshold:   constants.LowBalancePublishThreshold,
		OptOutBalanceThreshold:       constants.OptOutBalanceThreshold,
		OptOutProbability:            constants.OptOutProbability,
		OptOutReputationThreshold:    constants.OptOutReputationThreshold,
		LowQualityLowBandProbability: constants.LowQualityLowBandProbability,
	}
}

// PoolContribution is the number of credits one read pays into the round pool.
// Fractional credits are truncated.
func (p Params) PoolContribution() int {
	return int(float64(p.ReadCost) * p.PoolMatchRate)
}

// Validate checks that the parameters describe a usable economy.
func (p Params) Validate() error {
	amounts := []struct {
		name  string
		value int
	}{
		{"read_cost", p.ReadCost},
		{"publish_reward", p.PublishReward},
		{"publish_stake", p.PublishStake},
		{"decay_per_round", p.DecayPerRound},
		{"min_credits_to_read", p.MinCreditsToRead},
		{"slash_amount", p.SlashAmount},
		{"low_balance_publish_threshold", p.LowBalancePublishThreshold},
		{"opt_out_balance_threshold", p.OptOutBalanceThreshold},
	}
	for _, a := range amounts {
		if a.value < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", a.name, a.value)
		}
	}

	fractions := []struct {
		name  string
		value float64
	}{
		{"pool_match_rate", p.PoolMatchRate},
		{"dispute_probability", p.DisputeProbability},
		{"dispute_quality_threshold", p.DisputeQualityThreshold},
		{"reputation_slash_factor", p.ReputationSlashFactor},
		{"auto_read_probability", p.AutoReadProbability},
		{"opt_out_probability", p.OptOutProbability},
		{"opt_out_reputation_threshold", p.OptOutReputationThreshold},
		{"low_quality_low_band_probability", p.LowQualityLowBandProbability},
	}
	for _, f := range fractions {
		// Written as a negated range check so NaN is rejected too.
		if !(f.value >= 0 && f.value <= 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %v", f.name, f.value)
		}
	}

	return nil
}
