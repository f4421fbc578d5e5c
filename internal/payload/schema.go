package payload

import (
	"sync"

	"github.com/Conceptual-Machines/musicability-api/internal/melody"
	"github.com/Conceptual-Machines/musicability-api/internal/models"
	"github.com/google/jsonschema-go/jsonschema"
)

var schemaOnce = sync.OnceValues(buildSchema)

// Schema returns the JSON Schema describing a MusicalDescription payload,
// suitable as a structured-output contract for the upstream model.
// Callers must not modify the returned schema.
func Schema() (*jsonschema.Schema, error) {
	return schemaOnce()
}

func buildSchema() (*jsonschema.Schema, error) {
	s, err := jsonschema.For[models.MusicalDescription](&jsonschema.ForOptions{})
	if err != nil {
		return nil, err
	}
	s.Title = "MusicalDescription"
	s.Description = "A short monophonic melody. Notes play back to back in order."

	props := s.Properties
	describe(props["title"], "Name of the melody.")
	describe(props["key"], "Key label such as \"C major\"; informational only.")
	describe(props["tempo_bpm"], "Quarter-note tempo in beats per minute. Defaults to 120.")
	props["tempo_bpm"].Minimum = float64Ptr(melody.MinTempoBPM)
	describe(props["length_bars"], "Number of bars; derived from the notes when missing.")
	props["length_bars"].Minimum = float64Ptr(0)
	describe(props["assumptions"], "Assumptions made while interpreting the request.")

	if ts := props["time_signature"]; ts != nil {
		describe(ts, "Meter such as 3/4. Defaults to 4/4.")
		if num := ts.Properties["numerator"]; num != nil {
			num.Minimum = float64Ptr(1)
			num.Maximum = float64Ptr(melody.MaxNumerator)
		}
		if den := ts.Properties["denominator"]; den != nil {
			den.Description = "Power of two."
			den.Enum = []any{1, 2, 4, 8, 16, 32, 64, 128}
		}
	}

	if m := props["melody"]; m != nil {
		describe(m, "Notes in playing order.")
		if note := m.Items; note != nil {
			pitch := note.Properties["pitch"]
			describe(pitch, "MIDI note number (C4 = 60). Kept within C3 (48) to C5 (72).")
			pitch.Minimum = float64Ptr(melody.LowestPitch)
			pitch.Maximum = float64Ptr(melody.HighestPitch)

			duration := note.Properties["duration_beats"]
			describe(duration, "Length in quarter-note beats. Defaults to 1.")
			duration.ExclusiveMinimum = float64Ptr(0)

			velocity := note.Properties["velocity"]
			describe(velocity, "Loudness 1..127. Defaults to 90.")
			velocity.Minimum = float64Ptr(1)
			velocity.Maximum = float64Ptr(127)
		}
	}

	return s, nil
}

func describe(s *jsonschema.Schema, text string) {
	if s != nil {
		s.Description = text
	}
}

func float64Ptr(v float64) *float64 {
	return &v
}
