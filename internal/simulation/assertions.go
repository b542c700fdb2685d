package simulation

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/models"
	"github.com/nvandessel/reciprocity/internal/store"
)

// AssertCreditsNonNegative asserts that no clinic ever holds a negative
// balance, before or after any round.
func AssertCreditsNonNegative(t *testing.T, result SimulationResult) {
	t.Helper()
	for _, c := range result.Initial {
		if c.Credits < 0 {
			t.Errorf("AssertCreditsNonNegative: initial: clinic %s has %d credits", c.ID, c.Credits)
		}
	}
	for _, rs := range result.Rounds {
		for _, c := range rs.Clinics {
			if c.Credits < 0 {
				t.Errorf("AssertCreditsNonNegative: round %d: clinic %s has %d credits", rs.Index, c.ID, c.Credits)
			}
		}
		for _, e := range rs.Events {
			if e.Credits < 0 {
				t.Errorf("AssertCreditsNonNegative: round %d: %s event left clinic %s at %d credits", rs.Index, e.Kind, e.ClinicID, e.Credits)
			}
		}
	}
}

// AssertReputationBounded asserts that every reputation stays in (0, 1].
func AssertReputationBounded(t *testing.T, result SimulationResult) {
	t.Helper()
	for _, rs := range result.Rounds {
		for _, c := range rs.Clinics {
			if c.Reputation <= 0 || c.Reputation > 1 || math.IsNaN(c.Reputation) {
				t.Errorf("AssertReputationBounded: round %d: clinic %s reputation %v not in (0, 1]", rs.Index, c.ID, c.Reputation)
			}
		}
	}
}

// AssertNoReOptIn asserts that a clinic that has opted out never returns,
// and takes no further actions.
func AssertNoReOptIn(t *testing.T, result SimulationResult) {
	t.Helper()
	prev := result.Initial
	for _, rs := range result.Rounds {
		out := make(map[string]bool)
		for i, c := range rs.Clinics {
			if !prev[i].OptedIn {
				out[c.ID] = true
				if c.OptedIn {
					t.Errorf("AssertNoReOptIn: round %d: clinic %s opted back in", rs.Index, c.ID)
				}
			}
		}
		for _, e := range rs.Events {
			if out[e.ClinicID] {
				t.Errorf("AssertNoReOptIn: round %d: opted-out clinic %s produced a %s event", rs.Index, e.ClinicID, e.Kind)
			}
		}
		prev = rs.Clinics
	}
}

// AssertHistoriesAppendOnly asserts that tracked patient histories only
// ever grow, and that every new record is stamped with the round that
// appended it.
func AssertHistoriesAppendOnly(t *testing.T, result SimulationResult) {
	t.Helper()
	prev := result.InitialHistories
	for _, rs := range result.Rounds {
		for pid, hist := range rs.Histories {
			before := prev[pid]
			if len(hist) < len(before) {
				t.Errorf("AssertHistoriesAppendOnly: round %d: patient %s history shrank from %d to %d", rs.Index, pid, len(before), len(hist))
				continue
			}
			if len(before) > 0 && !reflect.DeepEqual(hist[:len(before)], before) {
				t.Errorf("AssertHistoriesAppendOnly: round %d: patient %s earlier records changed", rs.Index, pid)
			}
			for _, rec := range hist[len(before):] {
				if rec.Round != rs.Index {
					t.Errorf("AssertHistoriesAppendOnly: round %d: patient %s new record stamped round %d", rs.Index, pid, rec.Round)
				}
			}
		}
		prev = rs.Histories
	}
}

// AssertPoolConserved asserts that each round's pool is funded only by paid
// reads, is paid only to that round's publishers, and never pays out more
// than it collected.
func AssertPoolConserved(t *testing.T, result SimulationResult, contribution int) {
	t.Helper()
	for _, rs := range result.Rounds {
		reads := 0
		paid := 0
		publishers := make(map[string]bool)
		for _, e := range rs.Events {
			switch e.Kind {
			case engine.EventRead:
				reads++
			case engine.EventPublish:
				publishers[e.ClinicID] = true
			}
		}
		for _, e := range rs.Events {
			if e.Kind != engine.EventPayout {
				continue
			}
			paid += e.Amount
			if !publishers[e.ClinicID] {
				t.Errorf("AssertPoolConserved: round %d: clinic %s paid without publishing", rs.Index, e.ClinicID)
			}
		}
		if want := reads * contribution; rs.Summary.PoolCollected != want {
			t.Errorf("AssertPoolConserved: round %d: collected %d, want %d from %d paid reads", rs.Index, rs.Summary.PoolCollected, want, reads)
		}
		if paid != rs.Summary.PoolDistributed {
			t.Errorf("AssertPoolConserved: round %d: payouts sum to %d, summary says %d", rs.Index, paid, rs.Summary.PoolDistributed)
		}
		if rs.Summary.PoolDistributed > rs.Summary.PoolCollected {
			t.Errorf("AssertPoolConserved: round %d: distributed %d > collected %d", rs.Index, rs.Summary.PoolDistributed, rs.Summary.PoolCollected)
		}
	}
}

// AssertCreditFlowBalanced asserts that every balance change in a round is
// accounted for by start-of-round decay plus the round's events, and that
// each event reports the running balance.
func AssertCreditFlowBalanced(t *testing.T, result SimulationResult, decay int) {
	t.Helper()
	prev := result.Initial
	for _, rs := range result.Rounds {
		running := make(map[string]int, len(prev))
		for _, c := range prev {
			bal := c.Credits
			if c.OptedIn && bal > 0 {
				bal = max(0, bal-decay)
			}
			running[c.ID] = bal
		}
		for _, e := range rs.Events {
			running[e.ClinicID] += e.Amount
			if running[e.ClinicID] != e.Credits {
				t.Errorf("AssertCreditFlowBalanced: round %d: %s event for %s reports %d credits, ledger says %d",
					rs.Index, e.Kind, e.ClinicID, e.Credits, running[e.ClinicID])
				running[e.ClinicID] = e.Credits
			}
		}
		for _, c := range rs.Clinics {
			if running[c.ID] != c.Credits {
				t.Errorf("AssertCreditFlowBalanced: round %d: clinic %s holds %d credits, ledger says %d",
					rs.Index, c.ID, c.Credits, running[c.ID])
			}
		}
		prev = rs.Clinics
	}
}

// AssertSummaryMatchesEvents asserts that each round summary counts the
// same activity its events describe.
func AssertSummaryMatchesEvents(t *testing.T, result SimulationResult) {
	t.Helper()
	for _, rs := range result.Rounds {
		var got engine.RoundSummary
		got.Round = rs.Index
		for _, e := range rs.Events {
			switch e.Kind {
			case engine.EventRead:
				if e.Informative {
					got.Reads++
				}
			case engine.EventPublish:
				got.Publishes++
			case engine.EventDispute:
				got.Disputes++
			case engine.EventOptOut:
				got.OptOuts++
			}
		}
		want := rs.Summary
		want.PoolCollected, want.PoolDistributed = 0, 0
		if got != want {
			t.Errorf("AssertSummaryMatchesEvents: round %d: events give %+v, summary %+v", rs.Index, got, want)
		}
	}
}

// AssertFreeRidersNeverPublish asserts that no free-riding clinic publishes
// under the automatic policy.
func AssertFreeRidersNeverPublish(t *testing.T, result SimulationResult) {
	t.Helper()
	freeRiders := make(map[string]bool)
	for _, c := range result.Initial {
		if c.FreeRide && !c.IsPlayer {
			freeRiders[c.ID] = true
		}
	}
	for _, e := range result.EventsOfKind(engine.EventPublish) {
		if freeRiders[e.ClinicID] {
			t.Errorf("AssertFreeRidersNeverPublish: round %d: free-rider %s published", e.Round, e.ClinicID)
		}
	}
}

// AssertInvariants runs every structural invariant against result.
func AssertInvariants(t *testing.T, result SimulationResult, cfg engine.Config) {
	t.Helper()
	AssertCreditsNonNegative(t, result)
	AssertReputationBounded(t, result)
	AssertNoReOptIn(t, result)
	AssertHistoriesAppendOnly(t, result)
	AssertPoolConserved(t, result, cfg.Params.PoolContribution())
	AssertCreditFlowBalanced(t, result, cfg.Params.DecayPerRound)
	AssertSummaryMatchesEvents(t, result)
	AssertFreeRidersNeverPublish(t, result)
}

// AssertDeterministic asserts that two runs of the same scenario produced
// identical rounds and final statistics.
func AssertDeterministic(t *testing.T, a, b SimulationResult) {
	t.Helper()
	if len(a.Rounds) != len(b.Rounds) {
		t.Fatalf("AssertDeterministic: %d rounds vs %d", len(a.Rounds), len(b.Rounds))
	}
	for i := range a.Rounds {
		ra, rb := a.Rounds[i], b.Rounds[i]
		if ra.Summary != rb.Summary {
			t.Errorf("AssertDeterministic: round %d summary: %+v vs %+v", ra.Index, ra.Summary, rb.Summary)
		}
		if !reflect.DeepEqual(ra.Events, rb.Events) {
			t.Errorf("AssertDeterministic: round %d: event streams differ", ra.Index)
		}
		if !reflect.DeepEqual(ra.Clinics, rb.Clinics) {
			t.Errorf("AssertDeterministic: round %d: clinic snapshots differ", ra.Index)
		}
	}
	if !reflect.DeepEqual(a.Final, b.Final) {
		t.Errorf("AssertDeterministic: final stats %+v vs %+v", a.Final, b.Final)
	}
}

// AssertArchiveConsistent asserts that the archived copy of an archived
// scenario matches what the runner observed.
func AssertArchiveConsistent(t *testing.T, result SimulationResult) {
	t.Helper()
	if result.RunID == "" {
		t.Fatalf("AssertArchiveConsistent: scenario %s was not archived", result.Scenario)
	}
	ctx := context.Background()

	run, err := result.Store.GetRun(ctx, result.RunID)
	if err != nil {
		t.Fatalf("AssertArchiveConsistent: GetRun: %v", err)
	}
	if !run.Finished() {
		t.Errorf("AssertArchiveConsistent: run %s not finished", result.RunID)
	} else {
		if run.Stats.RemainingClinics != result.Final.RemainingClinics {
			t.Errorf("AssertArchiveConsistent: archived remaining %d, want %d", run.Stats.RemainingClinics, result.Final.RemainingClinics)
		}
		if run.Stats.TotalReads != result.Final.TotalReads || run.Stats.TotalPublishes != result.Final.TotalPublishes {
			t.Errorf("AssertArchiveConsistent: archived totals %d/%d, want %d/%d",
				run.Stats.TotalReads, run.Stats.TotalPublishes, result.Final.TotalReads, result.Final.TotalPublishes)
		}
	}

	rounds, err := result.Store.GetRounds(ctx, result.RunID)
	if err != nil {
		t.Fatalf("AssertArchiveConsistent: GetRounds: %v", err)
	}
	if len(rounds) != len(result.Rounds) {
		t.Fatalf("AssertArchiveConsistent: archived %d rounds, want %d", len(rounds), len(result.Rounds))
	}
	for i, rec := range rounds {
		if rec.Summary != result.Rounds[i].Summary {
			t.Errorf("AssertArchiveConsistent: round %d: archived %+v, want %+v", i+1, rec.Summary, result.Rounds[i].Summary)
		}
	}

	problems, err := store.ValidateRun(ctx, result.Store, result.RunID)
	if err != nil {
		t.Fatalf("AssertArchiveConsistent: ValidateRun: %v", err)
	}
	for _, p := range problems {
		t.Errorf("AssertArchiveConsistent: %s", p)
	}
}

// AssertPlayerHistory asserts that the designated clinic's publications are
// the only records it authored, in order.
func AssertPlayerHistory(t *testing.T, result SimulationResult, playerID string) {
	t.Helper()
	want := 0
	for _, e := range result.EventsOfKind(engine.EventPublish) {
		if e.ClinicID == playerID {
			want++
		}
	}
	final := result.Rounds[len(result.Rounds)-1].Histories
	got := 0
	for _, hist := range final {
		got += countAuthored(hist, playerID)
	}
	if got != want {
		t.Errorf("AssertPlayerHistory: %d records authored by %s, %d publish events", got, playerID, want)
	}
}

func countAuthored(hist []models.Record, clinicID string) int {
	n := 0
	for _, r := range hist {
		if r.ClinicID == clinicID {
			n++
		}
	}
	return n
}
