package economy

import (
	"math"
	"strings"
	"testing"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()

	if p.ReadCost != 3 {
		t.Errorf("ReadCost = %d, want 3", p.ReadCost)
	}
	if p.PublishReward != 4 || p.PublishStake != 2 {
		t.Errorf("PublishReward/PublishStake = %d/%d, want 4/2", p.PublishReward, p.PublishStake)
	}
	if p.SlashAmount != 6 {
		t.Errorf("SlashAmount = %d, want 6", p.SlashAmount)
	}
	if p.DisputeProbability != 0.12 || p.DisputeQualityThreshold != 0.45 {
		t.Errorf("dispute = %v/%v, want 0.12/0.45", p.DisputeProbability, p.DisputeQualityThreshold)
	}
	if p.AutoReadProbability != 0.55 {
		t.Errorf("AutoReadProbability = %v, want 0.55", p.AutoReadProbability)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("DefaultParams().Validate() = %v, want nil", err)
	}
}

func TestPoolContribution(t *testing.T) {
	tests := []struct {
		name string
		cost int
		rate float64
		want int
	}{
		{"reference truncates 1.5", 3, 0.5, 1},
		{"exact", 4, 0.5, 2},
		{"zero rate", 3, 0, 0},
		{"full rate", 3, 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			p.ReadCost = tt.cost
			p.PoolMatchRate = tt.rate
			if got := p.PoolContribution(); got != tt.want {
				t.Errorf("PoolContribution() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr string
	}{
		{"negative read cost", func(p *Params) { p.ReadCost = -1 }, "read_cost"},
		{"negative slash", func(p *Params) { p.SlashAmount = -6 }, "slash_amount"},
		{"dispute probability above one", func(p *Params) { p.DisputeProbability = 1.2 }, "dispute_probability"},
		{"negative match rate", func(p *Params) { p.PoolMatchRate = -0.5 }, "pool_match_rate"},
		{"NaN opt-out probability", func(p *Params) { p.OptOutProbability = math.NaN() }, "opt_out_probability"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
