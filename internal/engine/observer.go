package engine

// EventKind names something that happened to a clinic during a round.
type EventKind string

const (
	EventRead    EventKind = "read"
	EventPublish EventKind = "publish"
	EventDispute EventKind = "dispute"
	EventOptOut  EventKind = "opt_out"
	EventPayout  EventKind = "payout"
)

// Event describes one credit-affecting action taken during a round.
type Event struct {
	Round     int       `json:"round"`
	Kind      EventKind `json:"kind"`
	ClinicID  string    `json:"clinic_id"`
	PatientID string    `json:"patient_id,omitempty"`
	Quality   float64   `json:"quality,omitempty"`

	// Amount is the credit change caused by the event (negative for costs).
	Amount int `json:"amount"`

	// Credits is the clinic's balance after the event.
	Credits int `json:"credits"`

	// Informative is set on reads of patients that already had history.
	Informative bool `json:"informative,omitempty"`
}

// Observer receives events as the engine produces them. Observers must not
// call back into the state.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) {
	f(e)
}
