package models

import (
	"math"
	"time"
)

// TimeSignature is a meter as numerator over denominator (e.g. 3/4)
type TimeSignature struct {
	Numerator   int `json:"numerator" yaml:"numerator" msgpack:"numerator"`
	Denominator int `json:"denominator" yaml:"denominator" msgpack:"denominator"`
}

// NoteEvent represents a single melody note as produced upstream.
// A zero DurationBeats means the duration was missing; a nil Velocity means absent.
type NoteEvent struct {
	Pitch         int     `json:"pitch" yaml:"pitch" msgpack:"pitch"`
	DurationBeats float64 `json:"duration_beats" yaml:"duration_beats" msgpack:"duration_beats"`
	Velocity      *int    `json:"velocity,omitempty" yaml:"velocity,omitempty" msgpack:"velocity,omitempty"`
}

// MusicalDescription is the parsed description handed over by the upstream collaborator.
// It is never modified once received.
type MusicalDescription struct {
	Title         string         `json:"title" yaml:"title" msgpack:"title"`
	TempoBPM      int            `json:"tempo_bpm" yaml:"tempo_bpm" msgpack:"tempo_bpm"`
	Key           string         `json:"key" yaml:"key" msgpack:"key"`
	LengthBars    int            `json:"length_bars" yaml:"length_bars" msgpack:"length_bars"`
	TimeSignature *TimeSignature `json:"time_signature,omitempty" yaml:"time_signature,omitempty" msgpack:"time_signature,omitempty"`
	Melody        []NoteEvent    `json:"melody" yaml:"melody" msgpack:"melody"`
	Assumptions   []string       `json:"assumptions,omitempty" yaml:"assumptions,omitempty" msgpack:"assumptions,omitempty"`
}

// CanonicalNote is a NoteEvent with every field present and in range.
type CanonicalNote struct {
	Pitch         int     `json:"pitch" yaml:"pitch" msgpack:"pitch"`
	DurationBeats float64 `json:"duration_beats" yaml:"duration_beats" msgpack:"duration_beats"`
	Velocity      int     `json:"velocity" yaml:"velocity" msgpack:"velocity"`
}

// CanonicalDescription is the normalized form of a MusicalDescription and the
// only input accepted by the MIDI encoder.
type CanonicalDescription struct {
	Title         string          `json:"title" yaml:"title" msgpack:"title"`
	TempoBPM      int             `json:"tempo_bpm" yaml:"tempo_bpm" msgpack:"tempo_bpm"`
	Key           string          `json:"key" yaml:"key" msgpack:"key"`
	LengthBars    int             `json:"length_bars" yaml:"length_bars" msgpack:"length_bars"`
	TimeSignature TimeSignature   `json:"time_signature" yaml:"time_signature" msgpack:"time_signature"`
	Melody        []CanonicalNote `json:"melody" yaml:"melody" msgpack:"melody"`
	Assumptions   []string        `json:"assumptions" yaml:"assumptions" msgpack:"assumptions"`
}

// TotalBeats returns the summed duration of all notes in quarter-note beats
func (c CanonicalDescription) TotalBeats() float64 {
	total := 0.0
	for _, n := range c.Melody {
		total += n.DurationBeats
	}
	return total
}

// BeatsPerBar returns the length of one bar in quarter-note beats (6/8 -> 3).
func (c CanonicalDescription) BeatsPerBar() float64 {
	if c.TimeSignature.Denominator <= 0 {
		return 0
	}
	return float64(c.TimeSignature.Numerator) * 4 / float64(c.TimeSignature.Denominator)
}

// Duration returns the wall-clock playing time of the melody.
func (c CanonicalDescription) Duration() time.Duration {
	if c.TempoBPM <= 0 {
		return 0
	}
	seconds := c.TotalBeats() * 60 / float64(c.TempoBPM)
	if seconds >= float64(math.MaxInt64)/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(math.Round(seconds * float64(time.Second)))
}
