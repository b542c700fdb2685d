package simulation

import (
	"context"
	"testing"
)

func TestArchivedRunMatchesObservation(t *testing.T) {
	tests := []struct {
		name     string
		scenario Scenario
	}{
		{"automatic", Scenario{Config: SmallConfig(6)}},
		{"driven", Scenario{Config: WithPlayer(SmallConfig(6)), Actions: AlwaysAct(0.8)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.scenario.Name = tt.name
			tt.scenario.Archive = true
			r := NewRunner(t)
			result := r.Run(tt.scenario)
			AssertArchiveConsistent(t, result)
		})
	}
}

func TestArchiveHoldsEveryRun(t *testing.T) {
	r := NewRunner(t)
	ids := make(map[string]bool)
	for _, seed := range []uint32{1, 2, 3} {
		res := r.Run(Scenario{Name: "batch", Config: SmallConfig(seed), Archive: true})
		ids[res.RunID] = true
	}

	runs, err := r.Store().ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != len(ids) {
		t.Fatalf("archive holds %d runs, want %d", len(runs), len(ids))
	}
	for _, run := range runs {
		if !ids[run.ID] {
			t.Errorf("unexpected run %s", run.ID)
		}
		if !run.Finished() {
			t.Errorf("run %s not finished", run.ID)
		}
	}
}
