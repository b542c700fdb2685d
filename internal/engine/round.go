package engine

import (
	"github.com/nvandessel/reciprocity/internal/constants"
	"github.com/nvandessel/reciprocity/internal/models"
	"github.com/nvandessel/reciprocity/internal/random"
)

// stepRound performs one full round transition. actions is non-nil exactly
// when the run has a designated clinic.
//
// Order of a round:
//  1. decay every opted-in clinic with a positive balance
//  2. each opted-in clinic in population order reads, publishes and may opt out
//  3. the pool is split among clinics that published this round
//  4. contribution counters reset and the round counter advances
func (s *State) stepRound(actions *models.Actions) {
	s.last = RoundSummary{Round: s.round + 1}

	for _, c := range s.clinics {
		if c.OptedIn && c.Credits > 0 {
			c.Credits = max(0, c.Credits-s.params.DecayPerRound)
		}
	}

	for _, c := range s.clinics {
		if !c.OptedIn {
			continue
		}
		var a *models.Actions
		if c.IsPlayer {
			a = actions
		}
		s.read(c, a)
		s.publish(c, a)
		s.considerOptOut(c)
	}

	s.last.PoolCollected = s.pool
	s.last.PoolDistributed = s.distributePool()
	s.pool = 0

	for _, c := range s.clinics {
		c.Contrib = 0
	}
	s.round++
}

// read lets c attempt one paid read. The patient is drawn before the balance
// is checked, so an unaffordable read still consumes its draw.
func (s *State) read(c *models.Clinic, a *models.Actions) {
	var want bool
	if a != nil {
		want = a.Read
	} else {
		want = s.src.Float64() < s.params.AutoReadProbability
	}
	if !want {
		return
	}

	pid := s.patients[random.Intn(s.src, len(s.patients))]
	if c.Credits < s.params.MinCreditsToRead || c.Credits < s.params.ReadCost {
		return
	}

	c.Credits -= s.params.ReadCost
	s.pool += s.params.PoolContribution()

	informative := len(s.histories[pid]) > 0
	if informative {
		c.Reads++
		s.totalReads++
		s.last.Reads++
	}
	s.accessLog = append(s.accessLog, models.AccessEntry{
		Round:       s.round + 1,
		ClinicID:    c.ID,
		PatientID:   pid,
		Informative: informative,
	})
	s.emit(Event{
		Kind:        EventRead,
		ClinicID:    c.ID,
		PatientID:   pid,
		Amount:      -s.params.ReadCost,
		Credits:     c.Credits,
		Informative: informative,
	})
}

// publish lets c attempt one publication. Free-riders never publish on their
// own; low balances force ordinary clinics to publish.
func (s *State) publish(c *models.Clinic, a *models.Actions) {
	var want bool
	if a != nil {
		want = a.Publish
	} else {
		want = !c.FreeRide &&
			(c.Credits < s.params.LowBalancePublishThreshold || s.src.Float64() < c.SharePropensity)
	}
	if !want {
		return
	}

	pid := s.patients[random.Intn(s.src, len(s.patients))]
	quality, summary := s.drawQuality(c, a)

	if c.Credits < s.params.PublishStake {
		return
	}

	c.Credits += s.params.PublishReward - s.params.PublishStake
	c.Contrib++
	c.Publishes++
	s.totalPublishes++
	s.last.Publishes++

	s.histories[pid] = append(s.histories[pid], models.Record{
		Quality:  quality,
		ClinicID: c.ID,
		Round:    s.round + 1,
		Stake:    s.params.PublishStake,
		Summary:  summary,
	})
	s.emit(Event{
		Kind:      EventPublish,
		ClinicID:  c.ID,
		PatientID: pid,
		Quality:   quality,
		Amount:    s.params.PublishReward - s.params.PublishStake,
		Credits:   c.Credits,
	})

	if s.src.Float64() < s.params.DisputeProbability && quality < s.params.DisputeQualityThreshold {
		penalty := min(s.params.SlashAmount, c.Credits)
		c.Credits -= penalty
		c.Reputation *= s.params.ReputationSlashFactor
		s.last.Disputes++
		s.emit(Event{
			Kind:      EventDispute,
			ClinicID:  c.ID,
			PatientID: pid,
			Quality:   quality,
			Amount:    -penalty,
			Credits:   c.Credits,
		})
	}
}

// drawQuality picks a publication's quality band and value. The designated
// clinic always selects its band with its quality bias. Ordinary low-quality
// clinics draw a band; everyone else publishes from the high band without a
// band draw.
func (s *State) drawQuality(c *models.Clinic, a *models.Actions) (float64, string) {
	if c.IsPlayer {
		bias := s.cfg.Player.QualityBias
		if a != nil {
			bias = a.QualityBias
		}
		if s.src.Float64() < bias {
			return random.Uniform(s.src, constants.PlayerHighBandMin, constants.PlayerHighBandMax), constants.SummaryStructured
		}
		return random.Uniform(s.src, constants.PlayerLowBandMin, constants.PlayerLowBandMax), constants.SummaryGeneric
	}
	if c.LowQuality && s.src.Float64() < s.params.LowQualityLowBandProbability {
		return random.Uniform(s.src, constants.LowBandMin, constants.LowBandMax), constants.SummaryGeneric
	}
	return random.Uniform(s.src, constants.HighBandMin, constants.HighBandMax), constants.SummaryStructured
}

// considerOptOut gives a low-balance clinic a chance to leave. Only
// free-riders and clinics with damaged reputation actually leave.
func (s *State) considerOptOut(c *models.Clinic) {
	if c.Credits >= s.params.OptOutBalanceThreshold {
		return
	}
	if s.src.Float64() >= s.params.OptOutProbability {
		return
	}
	if !c.FreeRide && c.Reputation >= s.params.OptOutReputationThreshold {
		return
	}
	c.OptedIn = false
	s.last.OptOuts++
	s.emit(Event{
		Kind:     EventOptOut,
		ClinicID: c.ID,
		Credits:  c.Credits,
	})
}

// distributePool splits the pool among this round's contributors in
// proportion to their publications, rounding each share down. Clinics that
// opted out during the round still collect their share. It returns the
// number of credits paid out.
func (s *State) distributePool() int {
	if s.pool <= 0 {
		return 0
	}
	total := 0
	for _, c := range s.clinics {
		total += c.Contrib
	}
	if total == 0 {
		return 0
	}

	paid := 0
	for _, c := range s.clinics {
		if c.Contrib == 0 {
			continue
		}
		share := s.pool * c.Contrib / total
		if share == 0 {
			continue
		}
		c.Credits += share
		paid += share
		s.emit(Event{
			Kind:     EventPayout,
			ClinicID: c.ID,
			Amount:   share,
			Credits:  c.Credits,
		})
	}
	return paid
}

func (s *State) emit(e Event) {
	if s.observer == nil {
		return
	}
	e.Round = s.round + 1
	s.observer.Observe(e)
}
