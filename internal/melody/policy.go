package melody

import "github.com/Conceptual-Machines/musicability-api/internal/models"

// Musical defaults applied by the normalizer. These are product decisions
// and are not read from the environment.
const (
	DefaultTempoBPM      = 120
	DefaultNumerator     = 4
	DefaultDenominator   = 4
	DefaultDurationBeats = 1.0
	DefaultVelocity      = 90

	// LowestPitch and HighestPitch bound the comfortable singing range, C3..C5 (C3 = 48).
	LowestPitch  = 48
	HighestPitch = 72

	// Tempo bounds keep microseconds-per-quarter inside the 3-byte tempo field.
	MinTempoBPM = 4
	MaxTempoBPM = 60_000_000

	// MinDurationBeats is one tick at 480 PPQ; shorter notes would end on
	// the tick they start.
	MinDurationBeats = 1.0 / 480
	// MaxDurationBeats is the longest note whose tick count still fits a 4-byte delta.
	MaxDurationBeats = float64(0x0FFFFFFF) / 480

	MaxNumerator   = 255
	MaxDenominator = 128
)

// Policy collects the defaults and ranges used by Normalize.
type Policy struct {
	DefaultTempoBPM      int
	MinTempoBPM          int
	MaxTempoBPM          int
	DefaultTimeSignature models.TimeSignature
	DefaultDurationBeats float64
	MinDurationBeats     float64
	MaxDurationBeats     float64
	DefaultVelocity      int
	LowestPitch          int
	HighestPitch         int
}

// DefaultPolicy returns the policy used by the package-level Normalize.
func DefaultPolicy() Policy {
	return Policy{
		DefaultTempoBPM:      DefaultTempoBPM,
		MinTempoBPM:          MinTempoBPM,
		MaxTempoBPM:          MaxTempoBPM,
		DefaultTimeSignature: models.TimeSignature{Numerator: DefaultNumerator, Denominator: DefaultDenominator},
		DefaultDurationBeats: DefaultDurationBeats,
		MinDurationBeats:     MinDurationBeats,
		MaxDurationBeats:     MaxDurationBeats,
		DefaultVelocity:      DefaultVelocity,
		LowestPitch:          LowestPitch,
		HighestPitch:         HighestPitch,
	}
}
