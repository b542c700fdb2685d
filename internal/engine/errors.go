package engine

import (
	"errors"
	"fmt"

	"github.com/nvandessel/reciprocity/internal/population"
)

// ErrInvalidConfiguration is returned before a run starts when the
// configuration cannot produce a run. No state is created.
var ErrInvalidConfiguration = population.ErrInvalidConfiguration

// ErrProtocolViolation is returned when a caller drives a run incorrectly.
// The state is left exactly as it was: no round transition happens and no
// random draws are consumed.
var ErrProtocolViolation = errors.New("protocol violation")

// ErrRoundLimit is returned by a step after the configured rounds have run.
var ErrRoundLimit = fmt.Errorf("%w: round limit reached", ErrProtocolViolation)

// ErrMalformedActions is returned by a step whose actions are missing or invalid.
var ErrMalformedActions = fmt.Errorf("%w: malformed actions", ErrProtocolViolation)
