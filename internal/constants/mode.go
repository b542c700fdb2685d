package constants

// Mode selects how the designated clinic's per-round actions are produced.
type Mode string

const (
	// ModeAuto derives the designated clinic's actions from the automatic rule.
	ModeAuto Mode = "auto"

	// ModeDriven takes the designated clinic's actions from the caller.
	ModeDriven Mode = "driven"
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}
