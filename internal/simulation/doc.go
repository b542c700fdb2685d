// Package simulation provides a multi-round test harness for validating the
// emergent dynamics of the data-sharing economy.
//
// The harness exercises the real engine State and SQLiteReportStore with no
// mocks. Scenarios are plain Go values naming a Config and an optional
// action function for the designated clinic. The runner steps the state one
// round at a time, capturing clinic snapshots, round events and patient
// histories so that property-based assertions can check invariants across
// the whole run.
//
// Each test gets an isolated SQLite archive via t.TempDir() and a sandboxed
// HOME to prevent touching user data.
//
// Usage:
//
//	func TestCreditsStayNonNegative(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:   "small-economy",
//	        Config: simulation.SmallConfig(3),
//	    })
//	    simulation.AssertCreditsNonNegative(t, result)
//	}
package simulation
