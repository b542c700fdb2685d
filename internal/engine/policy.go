package engine

import (
	"github.com/nvandessel/reciprocity/internal/models"
)

// Policy supplies the designated clinic's actions for the round about to run.
// Decide is called once per round, before the round starts.
type Policy interface {
	Decide(s *State) (models.Actions, error)
}

// Automatic applies the ordinary clinic rule to the designated clinic. It
// consumes two draws at most from the run's random source: one for the read
// decision and one for the publish decision unless the clinic's low balance
// already forces a publish. The quality bias is the configured one.
type Automatic struct{}

// Decide implements Policy.
func (Automatic) Decide(s *State) (models.Actions, error) {
	p := s.params
	player := s.player

	read := s.src.Float64() < p.AutoReadProbability
	publish := player.Credits < p.LowBalancePublishThreshold || s.src.Float64() < player.SharePropensity

	return models.Actions{
		Read:        read,
		Publish:     publish,
		QualityBias: s.cfg.Player.QualityBias,
	}, nil
}

// Driven returns a Policy that supplies exactly the given actions and
// consumes no random draws.
func Driven(a models.Actions) Policy {
	return driven(a)
}

type driven models.Actions

func (d driven) Decide(*State) (models.Actions, error) {
	return models.Actions(d), nil
}
