package melody

import (
	"math"
	"testing"

	"github.com/Conceptual-Machines/musicability-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestNormalizeTempo(t *testing.T) {
	tests := []struct {
		name     string
		tempo    int
		expected int
	}{
		{name: "missing", tempo: 0, expected: 120},
		{name: "negative", tempo: -30, expected: 120},
		{name: "kept", tempo: 96, expected: 96},
		{name: "too slow to encode", tempo: 2, expected: MinTempoBPM},
		{name: "too fast to encode", tempo: 200_000_000, expected: MaxTempoBPM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Normalize(models.MusicalDescription{TempoBPM: tt.tempo})
			assert.Equal(t, tt.expected, c.TempoBPM)
		})
	}
}

func TestNormalizeTimeSignature(t *testing.T) {
	tests := []struct {
		name     string
		input    *models.TimeSignature
		expected models.TimeSignature
	}{
		{name: "missing", input: nil, expected: models.TimeSignature{Numerator: 4, Denominator: 4}},
		{name: "zero numerator", input: &models.TimeSignature{Numerator: 0, Denominator: 4}, expected: models.TimeSignature{Numerator: 4, Denominator: 4}},
		{name: "negative denominator", input: &models.TimeSignature{Numerator: 3, Denominator: -4}, expected: models.TimeSignature{Numerator: 4, Denominator: 4}},
		{name: "non power of two", input: &models.TimeSignature{Numerator: 3, Denominator: 6}, expected: models.TimeSignature{Numerator: 4, Denominator: 4}},
		{name: "numerator too large", input: &models.TimeSignature{Numerator: 300, Denominator: 4}, expected: models.TimeSignature{Numerator: 4, Denominator: 4}},
		{name: "three four", input: &models.TimeSignature{Numerator: 3, Denominator: 4}, expected: models.TimeSignature{Numerator: 3, Denominator: 4}},
		{name: "six eight", input: &models.TimeSignature{Numerator: 6, Denominator: 8}, expected: models.TimeSignature{Numerator: 6, Denominator: 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Normalize(models.MusicalDescription{TimeSignature: tt.input})
			assert.Equal(t, tt.expected, c.TimeSignature)
		})
	}
}

func TestNormalizeNotes(t *testing.T) {
	tests := []struct {
		name     string
		input    models.NoteEvent
		expected models.CanonicalNote
	}{
		{
			name:     "in range is kept",
			input:    models.NoteEvent{Pitch: 60, DurationBeats: 0.5, Velocity: intPtr(100)},
			expected: models.CanonicalNote{Pitch: 60, DurationBeats: 0.5, Velocity: 100},
		},
		{
			name:     "low pitch clamps to C3",
			input:    models.NoteEvent{Pitch: 30, DurationBeats: 1},
			expected: models.CanonicalNote{Pitch: 48, DurationBeats: 1, Velocity: 90},
		},
		{
			name:     "high pitch clamps to C5",
			input:    models.NoteEvent{Pitch: 100, DurationBeats: 1},
			expected: models.CanonicalNote{Pitch: 72, DurationBeats: 1, Velocity: 90},
		},
		{
			name:     "negative pitch clamps to C3",
			input:    models.NoteEvent{Pitch: -5, DurationBeats: 1},
			expected: models.CanonicalNote{Pitch: 48, DurationBeats: 1, Velocity: 90},
		},
		{
			name:     "missing duration",
			input:    models.NoteEvent{Pitch: 62},
			expected: models.CanonicalNote{Pitch: 62, DurationBeats: 1, Velocity: 90},
		},
		{
			name:     "negative duration",
			input:    models.NoteEvent{Pitch: 62, DurationBeats: -2},
			expected: models.CanonicalNote{Pitch: 62, DurationBeats: 1, Velocity: 90},
		},
		{
			name:     "NaN duration",
			input:    models.NoteEvent{Pitch: 62, DurationBeats: math.NaN()},
			expected: models.CanonicalNote{Pitch: 62, DurationBeats: 1, Velocity: 90},
		},
		{
			name:     "infinite duration",
			input:    models.NoteEvent{Pitch: 62, DurationBeats: math.Inf(1)},
			expected: models.CanonicalNote{Pitch: 62, DurationBeats: 1, Velocity: 90},
		},
		{
			name:     "tiny duration floors to one tick",
			input:    models.NoteEvent{Pitch: -5, DurationBeats: 0.0001},
			expected: models.CanonicalNote{Pitch: 48, DurationBeats: MinDurationBeats, Velocity: 90},
		},
		{
			name:     "huge duration saturates",
			input:    models.NoteEvent{Pitch: 62, DurationBeats: 1e12},
			expected: models.CanonicalNote{Pitch: 62, DurationBeats: MaxDurationBeats, Velocity: 90},
		},
		{
			name:     "zero velocity",
			input:    models.NoteEvent{Pitch: 64, DurationBeats: 1, Velocity: intPtr(0)},
			expected: models.CanonicalNote{Pitch: 64, DurationBeats: 1, Velocity: 90},
		},
		{
			name:     "velocity above range",
			input:    models.NoteEvent{Pitch: 64, DurationBeats: 1, Velocity: intPtr(200)},
			expected: models.CanonicalNote{Pitch: 64, DurationBeats: 1, Velocity: 90},
		},
		{
			name:     "velocity bounds are kept",
			input:    models.NoteEvent{Pitch: 64, DurationBeats: 1, Velocity: intPtr(127)},
			expected: models.CanonicalNote{Pitch: 64, DurationBeats: 1, Velocity: 127},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Normalize(models.MusicalDescription{Melody: []models.NoteEvent{tt.input}})
			require.Len(t, c.Melody, 1)
			assert.Equal(t, tt.expected, c.Melody[0])
		})
	}
}

func TestNormalizePreservesOrderAndDuplicates(t *testing.T) {
	d := models.MusicalDescription{
		Melody: []models.NoteEvent{
			{Pitch: 67, DurationBeats: 1},
			{Pitch: 60, DurationBeats: 1},
			{Pitch: 60, DurationBeats: 1},
			{Pitch: 64, DurationBeats: 2},
		},
	}

	c := Normalize(d)

	pitches := make([]int, 0, len(c.Melody))
	for _, n := range c.Melody {
		pitches = append(pitches, n.Pitch)
	}
	assert.Equal(t, []int{67, 60, 60, 64}, pitches)
}

func TestNormalizeDoesNotModifyInput(t *testing.T) {
	d := models.MusicalDescription{
		Title:       "Morning",
		Melody:      []models.NoteEvent{{Pitch: 10, DurationBeats: -1}},
		Assumptions: []string{"assumed 4/4"},
	}

	c := Normalize(d)
	c.Assumptions[0] = "changed"

	assert.Equal(t, 10, d.Melody[0].Pitch)
	assert.Equal(t, -1.0, d.Melody[0].DurationBeats)
	assert.Equal(t, "assumed 4/4", d.Assumptions[0])
	assert.Equal(t, "Morning", c.Title)
}

func TestNormalizeEmptyMelody(t *testing.T) {
	c := Normalize(models.MusicalDescription{})

	assert.Empty(t, c.Melody)
	assert.NotNil(t, c.Assumptions)
	assert.Equal(t, 120, c.TempoBPM)
	assert.Equal(t, models.TimeSignature{Numerator: 4, Denominator: 4}, c.TimeSignature)
	assert.Equal(t, 1, c.LengthBars)
}

func TestNormalizeLengthBars(t *testing.T) {
	tests := []struct {
		name     string
		bars     int
		ts       *models.TimeSignature
		beats    []float64
		expected int
	}{
		{name: "kept when positive", bars: 8, beats: []float64{1}, expected: 8},
		{name: "derived in 4/4", bars: 0, beats: []float64{1, 1, 1, 1, 1}, expected: 2},
		{name: "exact bar", bars: 0, beats: []float64{2, 2}, expected: 1},
		{name: "derived in 6/8", bars: -1, ts: &models.TimeSignature{Numerator: 6, Denominator: 8}, beats: []float64{1.5, 1.5, 1.5}, expected: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := models.MusicalDescription{LengthBars: tt.bars, TimeSignature: tt.ts}
			for _, b := range tt.beats {
				d.Melody = append(d.Melody, models.NoteEvent{Pitch: 60, DurationBeats: b})
			}
			assert.Equal(t, tt.expected, Normalize(d).LengthBars)
		})
	}
}

func TestCustomPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.DefaultVelocity = 64
	p.LowestPitch = 55

	c := p.Normalize(models.MusicalDescription{Melody: []models.NoteEvent{{Pitch: 50}}})

	require.Len(t, c.Melody, 1)
	assert.Equal(t, 55, c.Melody[0].Pitch)
	assert.Equal(t, 64, c.Melody[0].Velocity)
}
