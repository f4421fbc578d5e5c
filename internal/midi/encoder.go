package midi

import (
	"encoding/binary"
	"math"

	"github.com/Conceptual-Machines/musicability-api/internal/models"
)

// File layout constants. Every file is Type 0 with a single track on
// channel 0 playing program 0 (acoustic grand piano).
const (
	TicksPerQuarter         = 480
	Channel                 = 0
	Program                 = 0
	ClocksPerClick          = 24
	ThirtySecondsPerQuarter = 8

	MaxTempoMicros = 0xFFFFFF
	MaxNumerator   = 255
	MaxDenominator = 128
)

const (
	statusNoteOff       = 0x80
	statusNoteOn        = 0x90
	statusProgramChange = 0xC0
	statusMeta          = 0xFF

	metaTempo         = 0x51
	metaTimeSignature = 0x58
	metaEndOfTrack    = 0x2F
)

// TempoMicros returns microseconds per quarter note for a positive tempo,
// rounded to the nearest integer.
func TempoMicros(bpm int) int64 {
	b := int64(bpm)
	return (60_000_000 + b/2) / b
}

// Ticks converts a duration in quarter-note beats to ticks at 480 PPQ.
func Ticks(beats float64) int64 {
	return int64(math.Round(beats * TicksPerQuarter))
}

// Encode writes a canonical description as a Type-0 Standard MIDI File.
// The description is validated first; on error no bytes are returned.
func Encode(c models.CanonicalDescription) ([]byte, error) {
	if err := Validate(c); err != nil {
		return nil, err
	}

	track := make([]byte, 0, 4*4+len(c.Melody)*12)

	micros := TempoMicros(c.TempoBPM)
	track = append(track, 0x00, statusMeta, metaTempo, 0x03,
		byte(micros>>16), byte(micros>>8), byte(micros))

	track = append(track, 0x00, statusMeta, metaTimeSignature, 0x04,
		byte(c.TimeSignature.Numerator), denominatorExponent(c.TimeSignature.Denominator),
		ClocksPerClick, ThirtySecondsPerQuarter)

	track = append(track, 0x00, statusProgramChange|Channel, Program)

	for _, n := range c.Melody {
		pitch := byte(n.Pitch)
		track = append(track, 0x00, statusNoteOn|Channel, pitch, byte(n.Velocity))
		// Validate guarantees the tick count is representable.
		track, _ = AppendVLQ(track, uint32(Ticks(n.DurationBeats)))
		track = append(track, statusNoteOff|Channel, pitch, 0x00)
	}

	track = append(track, 0x00, statusMeta, metaEndOfTrack, 0x00)

	if uint64(len(track)) > math.MaxUint32 {
		return nil, fieldError("melody", len(c.Melody), "track exceeds the maximum chunk length")
	}

	out := make([]byte, 0, 14+8+len(track))
	out = append(out, "MThd"...)
	out = binary.BigEndian.AppendUint32(out, 6)
	out = binary.BigEndian.AppendUint16(out, 0) // format
	out = binary.BigEndian.AppendUint16(out, 1) // tracks
	out = binary.BigEndian.AppendUint16(out, TicksPerQuarter)
	out = append(out, "MTrk"...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(track)))
	out = append(out, track...)

	return out, nil
}

// Validate checks that every value of c can be written without producing a
// malformed file.
func Validate(c models.CanonicalDescription) error {
	if c.TempoBPM <= 0 {
		return fieldError("tempo_bpm", c.TempoBPM, "must be positive")
	}
	if micros := TempoMicros(c.TempoBPM); micros < 1 || micros > MaxTempoMicros {
		return fieldError("tempo_bpm", c.TempoBPM, "tempo does not fit in three bytes")
	}

	ts := c.TimeSignature
	if ts.Numerator <= 0 || ts.Numerator > MaxNumerator {
		return fieldError("time_signature.numerator", ts.Numerator, "must be in 1..255")
	}
	if ts.Denominator <= 0 || ts.Denominator > MaxDenominator || ts.Denominator&(ts.Denominator-1) != 0 {
		return fieldError("time_signature.denominator", ts.Denominator, "must be a power of two in 1..128")
	}

	for i, n := range c.Melody {
		if n.Pitch < 0 || n.Pitch > 127 {
			return noteError(i, "pitch", n.Pitch, "must be in 0..127")
		}
		if n.Velocity < 1 || n.Velocity > 127 {
			return noteError(i, "velocity", n.Velocity, "must be in 1..127")
		}
		if math.IsNaN(n.DurationBeats) || math.IsInf(n.DurationBeats, 0) || n.DurationBeats <= 0 {
			return noteError(i, "duration_beats", n.DurationBeats, "must be a positive number")
		}
		ticks := math.Round(n.DurationBeats * TicksPerQuarter)
		if ticks < 1 {
			return noteError(i, "duration_beats", n.DurationBeats, "shorter than one tick")
		}
		if ticks > MaxVLQ {
			return noteError(i, "duration_beats", n.DurationBeats, "tick count exceeds the delta-time maximum")
		}
	}

	return nil
}

func denominatorExponent(denominator int) byte {
	var exp byte
	for d := denominator; d > 1; d >>= 1 {
		exp++
	}
	return exp
}
