package models

// Record is one publication appended to a patient's history.
// Histories are append-only for the lifetime of a run.
type Record struct {
	Quality  float64 `json:"quality" yaml:"quality"`
	ClinicID string  `json:"clinic_id,omitempty" yaml:"clinic_id,omitempty"`
	Round    int     `json:"round" yaml:"round"`
	Stake    int     `json:"stake" yaml:"stake"`

	// Summary tags the quality band the record was drawn from:
	// "structured" for high-band and "generic" for low-band publications.
	Summary string `json:"summary" yaml:"summary"`
}

// Redacted returns a copy of the record with the author removed, for views
// shared outside the engine.
func (r Record) Redacted() Record {
	r.ClinicID = ""
	return r
}

// AccessEntry logs one paid read.
type AccessEntry struct {
	Round     int    `json:"round" yaml:"round"`
	ClinicID  string `json:"clinic_id" yaml:"clinic_id"`
	PatientID string `json:"patient_id" yaml:"patient_id"`

	// Informative is true when the patient already had history at read time
	Informative bool `json:"informative" yaml:"informative"`
}
