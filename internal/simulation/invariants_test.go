package simulation

import (
	"fmt"
	"testing"

	"github.com/nvandessel/reciprocity/internal/engine"
)

func TestInvariantsHoldAcrossSeeds(t *testing.T) {
	for _, seed := range []uint32{1, 2, 3, 7, 42} {
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			cfg := SmallConfig(seed)
			r := NewRunner(t)
			result := r.Run(Scenario{Name: "small", Config: cfg})

			if len(result.Rounds) != cfg.Rounds {
				t.Fatalf("got %d rounds, want %d", len(result.Rounds), cfg.Rounds)
			}
			AssertInvariants(t, result, cfg)
		})
	}
}

func TestInvariantsHoldUnderStress(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*engine.Config)
	}{
		{"low-quality-heavy", func(c *engine.Config) { c.LowQualityFraction = 0.8; c.FreeRiderFraction = 0 }},
		{"free-rider-heavy", func(c *engine.Config) { c.FreeRiderFraction = 0.7 }},
		{"poor-start", func(c *engine.Config) { c.StarterCredits = 2 }},
		{"rich-start", func(c *engine.Config) { c.StarterCredits = 100 }},
		{"expensive-reads", func(c *engine.Config) { c.Params.ReadCost = 7; c.Params.MinCreditsToRead = 7 }},
		{"frequent-disputes", func(c *engine.Config) { c.Params.DisputeProbability = 0.9; c.LowQualityFraction = 0.5 }},
		{"no-decay", func(c *engine.Config) { c.Params.DecayPerRound = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := SmallConfig(11)
			tt.mutate(&cfg)
			r := NewRunner(t)
			result := r.Run(Scenario{Name: tt.name, Config: cfg})
			AssertInvariants(t, result, cfg)
		})
	}
}

func TestInvariantsHoldWithDrivenPlayer(t *testing.T) {
	tests := []struct {
		name    string
		actions ActionFunc
	}{
		{"always-high", AlwaysAct(1.0)},
		{"always-low", AlwaysAct(0.0)},
		{"alternate", Alternate(0.5)},
		{"idle", Idle()},
		{"automatic-after-five", AutomaticAfter(5, AlwaysAct(0.3))},
		{"automatic", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := WithPlayer(SmallConfig(5))
			r := NewRunner(t)
			result := r.Run(Scenario{Name: tt.name, Config: cfg, Actions: tt.actions})
			AssertInvariants(t, result, cfg)
			AssertPlayerHistory(t, result, result.Initial[0].ID)
		})
	}
}

func TestReferenceRunOutcome(t *testing.T) {
	cfg := engine.DefaultConfig()
	r := NewRunner(t)
	result := r.Run(Scenario{Name: "reference", Config: cfg})

	AssertInvariants(t, result, cfg)
	if result.Final.RemainingClinics != 165 {
		t.Errorf("RemainingClinics = %d, want 165", result.Final.RemainingClinics)
	}
	if result.Final.TotalReads != 536 {
		t.Errorf("TotalReads = %d, want 536", result.Final.TotalReads)
	}
	if result.Final.TotalPublishes != 1157 {
		t.Errorf("TotalPublishes = %d, want 1157", result.Final.TotalPublishes)
	}
}
