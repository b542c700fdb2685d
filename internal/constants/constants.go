// Package constants provides named constants used throughout the reciprocity codebase.
// This centralizes the reference economy values so that defaults, validation and
// documentation all agree on one source.
package constants

// Credit flow constants. All amounts are in whole credits.
const (
	// ReadCost is what a clinic pays to read one patient's history.
	ReadCost = 3

	// PublishReward is credited to a clinic for every accepted publication.
	PublishReward = 4

	// PublishStake is debited before the reward is credited, so the net gain of a
	// publication is PublishReward - PublishStake.
	PublishStake = 2

	// DecayPerRound is removed from every opted-in clinic with a positive balance
	// at the start of each round.
	DecayPerRound = 1

	// MinCreditsToRead is the balance a clinic must hold before a read is allowed.
	MinCreditsToRead = 3

	// SlashAmount is the maximum penalty taken from a clinic on a lost dispute.
	SlashAmount = 6

	// PoolMatchRate is the fraction of each read cost paid into the round pool.
	PoolMatchRate = 0.5
)

// Dispute constants.
const (
	// DisputeProbability is the chance a freshly published record is disputed.
	DisputeProbability = 0.12

	// DisputeQualityThreshold is the quality below which a disputed record is slashed.
	DisputeQualityThreshold = 0.45

	// ReputationSlashFactor multiplies reputation on every lost dispute.
	ReputationSlashFactor = 0.9
)

// Automatic behavior constants drive the clinics that are not externally controlled.
const (
	// AutoReadProbability is the chance an automatic clinic attempts a read each round.
	AutoReadProbability = 0.55

	// LowBalancePublishThreshold forces automatic clinics below this balance to publish.
	LowBalancePublishThreshold = 6

	// OptOutBalanceThreshold is the balance below which clinics consider leaving.
	OptOutBalanceThreshold = 3

	// OptOutProbability is the chance a low-balance clinic evaluates leaving.
	OptOutProbability = 0.05

	// OptOutReputationThreshold is the reputation below which a clinic may leave.
	OptOutReputationThreshold = 0.7

	// LowQualityLowBandProbability is the chance a low-quality clinic publishes
	// from the low quality band.
	LowQualityLowBandProbability = 0.6
)

// Archetype share propensities.
const (
	// CooperativeSharePropensity is the publish propensity of ordinary clinics.
	CooperativeSharePropensity = 0.75

	// FreeRiderSharePropensity is the publish propensity of free-riding clinics.
	FreeRiderSharePropensity = 0.05
)

// Quality bands as half-open ranges [Min, Max).
const (
	HighBandMin = 0.6
	HighBandMax = 1.0
	LowBandMin  = 0.1
	LowBandMax  = 0.5

	// The designated clinic draws from its own bands, selected by its quality bias.
	PlayerHighBandMin = 0.7
	PlayerHighBandMax = 1.0
	PlayerLowBandMin  = 0.2
	PlayerLowBandMax  = 0.6
)

// Run defaults mirror the reference demo run.
const (
	DefaultClinics            = 200
	DefaultPatients           = 400
	DefaultRounds             = 45
	DefaultStarterCredits     = 10
	DefaultFreeRiderFraction  = 0.18
	DefaultLowQualityFraction = 0.10
	DefaultSeed               = 7

	// DefaultPlayerSharePropensity and DefaultPlayerQualityBias apply when a
	// designated clinic is enabled without explicit values.
	DefaultPlayerSharePropensity = 0.75
	DefaultPlayerQualityBias     = 0.8
)

// Remote size limits cap the runs the HTTP and MCP servers accept.
const (
	DefaultMaxClinics  = 10000
	DefaultMaxPatients = 100000
	DefaultMaxRounds   = 10000
)

// Record summary tags describe which quality band a publication came from.
const (
	SummaryStructured = "structured"
	SummaryGeneric    = "generic"
)
