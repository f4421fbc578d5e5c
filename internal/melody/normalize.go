package melody

import (
	"math"

	"github.com/Conceptual-Machines/musicability-api/internal/models"
)

// Normalize repairs a description with the default policy.
func Normalize(d models.MusicalDescription) models.CanonicalDescription {
	return DefaultPolicy().Normalize(d)
}

// Normalize turns a loosely-formed description into its canonical form.
// It never fails: every missing or out-of-range value is replaced by a
// default or saturated into range. The input is not modified and note
// order is preserved exactly.
func (p Policy) Normalize(d models.MusicalDescription) models.CanonicalDescription {
	c := models.CanonicalDescription{
		Title:         d.Title,
		Key:           d.Key,
		TempoBPM:      p.tempo(d.TempoBPM),
		TimeSignature: p.timeSignature(d.TimeSignature),
		Melody:        make([]models.CanonicalNote, len(d.Melody)),
		Assumptions:   append([]string{}, d.Assumptions...),
	}

	for i, n := range d.Melody {
		c.Melody[i] = models.CanonicalNote{
			Pitch:         p.pitch(n.Pitch),
			DurationBeats: p.duration(n.DurationBeats),
			Velocity:      p.velocity(n.Velocity),
		}
	}

	c.LengthBars = d.LengthBars
	if c.LengthBars <= 0 {
		c.LengthBars = barsFor(c.TotalBeats(), c.BeatsPerBar())
	}

	return c
}

func (p Policy) tempo(bpm int) int {
	if bpm <= 0 {
		return p.DefaultTempoBPM
	}
	return clampInt(bpm, p.MinTempoBPM, p.MaxTempoBPM)
}

func (p Policy) timeSignature(ts *models.TimeSignature) models.TimeSignature {
	if ts == nil || !ValidTimeSignature(*ts) {
		return p.DefaultTimeSignature
	}
	return *ts
}

func (p Policy) pitch(pitch int) int {
	return clampInt(pitch, p.LowestPitch, p.HighestPitch)
}

func (p Policy) duration(beats float64) float64 {
	if math.IsNaN(beats) || math.IsInf(beats, 0) || beats <= 0 {
		return p.DefaultDurationBeats
	}
	return math.Min(math.Max(beats, p.MinDurationBeats), p.MaxDurationBeats)
}

func (p Policy) velocity(v *int) int {
	if v == nil || *v < 1 || *v > 127 {
		return p.DefaultVelocity
	}
	return *v
}

// ValidTimeSignature reports whether a meter can be written as an SMF
// time-signature event: positive numerator up to 255 and a power-of-two
// denominator up to 128.
func ValidTimeSignature(ts models.TimeSignature) bool {
	if ts.Numerator <= 0 || ts.Numerator > MaxNumerator {
		return false
	}
	if ts.Denominator <= 0 || ts.Denominator > MaxDenominator {
		return false
	}
	return ts.Denominator&(ts.Denominator-1) == 0
}

func barsFor(totalBeats, beatsPerBar float64) int {
	if beatsPerBar <= 0 || totalBeats <= 0 {
		return 1
	}
	bars := math.Ceil(totalBeats/beatsPerBar - 1e-9)
	if bars < 1 {
		return 1
	}
	if bars > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(bars)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
