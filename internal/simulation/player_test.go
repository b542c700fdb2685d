package simulation

import (
	"testing"

	"github.com/nvandessel/reciprocity/internal/constants"
	"github.com/nvandessel/reciprocity/internal/engine"
)

func TestSingleDrivenClinic(t *testing.T) {
	cfg := SingleClinicConfig()
	r := NewRunner(t)
	result := r.Run(Scenario{
		Name:          "single-driven",
		Config:        cfg,
		Actions:       AlwaysAct(1.0),
		TrackPatients: []string{"P0370"},
	})

	AssertInvariants(t, result, cfg)

	p := result.Final.Player
	if p == nil {
		t.Fatal("expected player stats")
	}
	if p.Credits != 9 || p.Publishes != 1 || p.Reads != 0 {
		t.Errorf("player = %+v, want 9 credits, 1 publish, 0 reads", p)
	}

	round := result.Rounds[0]
	if round.Summary.PoolCollected != 1 || round.Summary.PoolDistributed != 1 {
		t.Errorf("pool = %d/%d, want 1/1", round.Summary.PoolDistributed, round.Summary.PoolCollected)
	}

	hist := round.Histories["P0370"]
	if len(hist) != 1 {
		t.Fatalf("P0370 history has %d records, want 1", len(hist))
	}
	if hist[0].Quality != 0.9567350670462473 {
		t.Errorf("quality = %v, want 0.9567350670462473", hist[0].Quality)
	}
	if hist[0].Summary != constants.SummaryStructured {
		t.Errorf("summary = %q, want %q", hist[0].Summary, constants.SummaryStructured)
	}
}

func TestSingleAutomaticClinic(t *testing.T) {
	cfg := SingleClinicConfig()
	r := NewRunner(t)
	result := r.Run(Scenario{Name: "single-automatic", Config: cfg, TrackPatients: []string{"P0370"}})

	AssertInvariants(t, result, cfg)

	p := result.Final.Player
	if p == nil {
		t.Fatal("expected player stats")
	}
	if p.Credits != 9 || p.Publishes != 0 || p.Reads != 0 {
		t.Errorf("player = %+v, want 9 credits and no activity", p)
	}
	if n := len(result.Rounds[0].Events); n != 0 {
		t.Errorf("got %d events, want none", n)
	}
}

func TestIdlePlayerDrainsButStays(t *testing.T) {
	cfg := WithPlayer(SmallConfig(9))
	r := NewRunner(t)
	result := r.Run(Scenario{Name: "idle-player", Config: cfg, Actions: Idle()})

	p := result.Final.Player
	if p == nil {
		t.Fatal("expected player stats")
	}
	if p.Credits != 0 {
		t.Errorf("Credits = %d, want 0 after %d rounds of decay", p.Credits, cfg.Rounds)
	}
	if p.Reads != 0 || p.Publishes != 0 {
		t.Errorf("idle player read %d and published %d", p.Reads, p.Publishes)
	}
	if !p.OptedIn {
		t.Error("idle player with full reputation opted out")
	}
	for _, rs := range result.Rounds {
		for _, e := range rs.Events {
			if e.ClinicID == p.ID {
				t.Errorf("round %d: idle player produced a %s event", rs.Index, e.Kind)
			}
		}
	}
}

func TestHighBiasPlayerKeepsReputation(t *testing.T) {
	cfg := WithPlayer(SmallConfig(11))
	cfg.Params.DisputeProbability = 1.0
	r := NewRunner(t)
	result := r.Run(Scenario{Name: "high-bias", Config: cfg, Actions: AlwaysAct(1.0)})

	p := result.Final.Player
	if p == nil {
		t.Fatal("expected player stats")
	}
	if p.Reputation != 1.0 {
		t.Errorf("Reputation = %v, want 1.0", p.Reputation)
	}
	if !p.OptedIn {
		t.Error("player opted out")
	}
	if p.Publishes == 0 {
		t.Error("player never published")
	}
	for _, e := range result.EventsOfKind(engine.EventDispute) {
		if e.ClinicID == p.ID {
			t.Errorf("round %d: high-band publication by %s was slashed", e.Round, p.ID)
		}
	}
	for _, e := range result.EventsOfKind(engine.EventPublish) {
		if e.ClinicID == p.ID && e.Quality < constants.PlayerHighBandMin {
			t.Errorf("round %d: quality %v below high band", e.Round, e.Quality)
		}
	}
}
