package midi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Conceptual-Machines/musicability-api/internal/melody"
	"github.com/Conceptual-Machines/musicability-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func canonical(notes ...models.CanonicalNote) models.CanonicalDescription {
	return models.CanonicalDescription{
		Title:         "Test",
		TempoBPM:      120,
		LengthBars:    1,
		TimeSignature: models.TimeSignature{Numerator: 4, Denominator: 4},
		Melody:        notes,
		Assumptions:   []string{},
	}
}

func TestEncodeSingleNoteExactBytes(t *testing.T) {
	data, err := Encode(canonical(models.CanonicalNote{Pitch: 60, DurationBeats: 1, Velocity: 90}))
	require.NoError(t, err)

	expected := []byte{
		'M', 'T', 'h', 'd', 0x00, 0x00, 0x00, 0x06, 0x00, 0x00, 0x00, 0x01, 0x01, 0xE0,
		'M', 'T', 'r', 'k', 0x00, 0x00, 0x00, 0x1F,
		0x00, 0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20,
		0x00, 0xFF, 0x58, 0x04, 0x04, 0x02, 0x18, 0x08,
		0x00, 0xC0, 0x00,
		0x00, 0x90, 0x3C, 0x5A,
		0x83, 0x60, 0x80, 0x3C, 0x00,
		0x00, 0xFF, 0x2F, 0x00,
	}
	assert.Equal(t, expected, data)
}

func TestEncodeEmptyMelody(t *testing.T) {
	data, err := Encode(canonical())
	require.NoError(t, err)

	track := data[22:]
	assert.Equal(t, []byte{
		0x00, 0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20,
		0x00, 0xFF, 0x58, 0x04, 0x04, 0x02, 0x18, 0x08,
		0x00, 0xC0, 0x00,
		0x00, 0xFF, 0x2F, 0x00,
	}, track)
	assert.Equal(t, uint32(len(track)), binary.BigEndian.Uint32(data[18:22]))
	assert.False(t, bytes.Contains(track, []byte{0x90}))
}

func TestEncodeChunkLengths(t *testing.T) {
	tests := []struct {
		name  string
		notes []models.CanonicalNote
	}{
		{name: "empty"},
		{name: "one note", notes: []models.CanonicalNote{{Pitch: 60, DurationBeats: 1, Velocity: 90}}},
		{name: "long note", notes: []models.CanonicalNote{{Pitch: 48, DurationBeats: melody.MaxDurationBeats, Velocity: 1}}},
		{name: "mixed", notes: []models.CanonicalNote{
			{Pitch: 60, DurationBeats: 0.25, Velocity: 90},
			{Pitch: 62, DurationBeats: 0.5, Velocity: 100},
			{Pitch: 64, DurationBeats: 3, Velocity: 127},
			{Pitch: 72, DurationBeats: 300, Velocity: 40},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(canonical(tt.notes...))
			require.NoError(t, err)

			assert.Equal(t, "MThd", string(data[0:4]))
			assert.Equal(t, uint32(6), binary.BigEndian.Uint32(data[4:8]))
			assert.Equal(t, "MTrk", string(data[14:18]))
			assert.Equal(t, uint32(len(data)-22), binary.BigEndian.Uint32(data[18:22]))
		})
	}
}

func TestEncodeTempo(t *testing.T) {
	tests := []struct {
		bpm      int
		expected []byte
	}{
		{bpm: 120, expected: []byte{0x07, 0xA1, 0x20}},
		{bpm: 100, expected: []byte{0x09, 0x27, 0xC0}}, // 600000
		{bpm: 60, expected: []byte{0x0F, 0x42, 0x40}},  // 1000000
		{bpm: 7, expected: []byte{0x82, 0xCA, 0x25}},   // 8571429, rounded up
	}

	for _, tt := range tests {
		c := canonical()
		c.TempoBPM = tt.bpm
		data, err := Encode(c)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, data[26:29], "bpm %d", tt.bpm)
	}

	assert.EqualValues(t, 500000, TempoMicros(120))
	assert.EqualValues(t, 600000, TempoMicros(100))
}

func TestEncodeTimeSignatureExponent(t *testing.T) {
	tests := []struct {
		ts       models.TimeSignature
		expected []byte
	}{
		{ts: models.TimeSignature{Numerator: 3, Denominator: 4}, expected: []byte{0x03, 0x02}},
		{ts: models.TimeSignature{Numerator: 6, Denominator: 8}, expected: []byte{0x06, 0x03}},
		{ts: models.TimeSignature{Numerator: 2, Denominator: 2}, expected: []byte{0x02, 0x01}},
		{ts: models.TimeSignature{Numerator: 1, Denominator: 1}, expected: []byte{0x01, 0x00}},
	}

	for _, tt := range tests {
		c := canonical()
		c.TimeSignature = tt.ts
		data, err := Encode(c)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, data[33:35])
		assert.Equal(t, []byte{0x18, 0x08}, data[35:37])
	}
}

func TestEncodeRejectsInvalidDescriptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *models.CanonicalDescription)
		field  string
		index  int
	}{
		{name: "zero tempo", mutate: func(c *models.CanonicalDescription) { c.TempoBPM = 0 }, field: "tempo_bpm", index: -1},
		{name: "tempo too slow", mutate: func(c *models.CanonicalDescription) { c.TempoBPM = 3 }, field: "tempo_bpm", index: -1},
		{name: "tempo too fast", mutate: func(c *models.CanonicalDescription) { c.TempoBPM = 200_000_000 }, field: "tempo_bpm", index: -1},
		{name: "zero numerator", mutate: func(c *models.CanonicalDescription) { c.TimeSignature.Numerator = 0 }, field: "time_signature.numerator", index: -1},
		{name: "odd denominator", mutate: func(c *models.CanonicalDescription) { c.TimeSignature.Denominator = 3 }, field: "time_signature.denominator", index: -1},
		{name: "pitch out of range", mutate: func(c *models.CanonicalDescription) { c.Melody[1].Pitch = 128 }, field: "pitch", index: 1},
		{name: "zero velocity", mutate: func(c *models.CanonicalDescription) { c.Melody[0].Velocity = 0 }, field: "velocity", index: 0},
		{name: "negative duration", mutate: func(c *models.CanonicalDescription) { c.Melody[1].DurationBeats = -1 }, field: "duration_beats", index: 1},
		{name: "NaN duration", mutate: func(c *models.CanonicalDescription) { c.Melody[0].DurationBeats = math.NaN() }, field: "duration_beats", index: 0},
		{name: "duration too long", mutate: func(c *models.CanonicalDescription) { c.Melody[0].DurationBeats = 1e9 }, field: "duration_beats", index: 0},
		{name: "duration under one tick", mutate: func(c *models.CanonicalDescription) { c.Melody[1].DurationBeats = 0.0001 }, field: "duration_beats", index: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := canonical(
				models.CanonicalNote{Pitch: 60, DurationBeats: 1, Velocity: 90},
				models.CanonicalNote{Pitch: 62, DurationBeats: 1, Velocity: 90},
			)
			tt.mutate(&c)

			data, err := Encode(c)
			assert.Nil(t, data)

			var encErr *EncodingError
			require.True(t, errors.As(err, &encErr))
			assert.Equal(t, tt.field, encErr.Field)
			assert.Equal(t, tt.index, encErr.Index)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestEncodeNormalizedDescriptions(t *testing.T) {
	v := 200
	descriptions := []models.MusicalDescription{
		{},
		{TempoBPM: -5, TimeSignature: &models.TimeSignature{Numerator: 7, Denominator: 6}},
		{TempoBPM: 1, Melody: []models.NoteEvent{{Pitch: 0, DurationBeats: -1, Velocity: &v}}},
		{TempoBPM: 1 << 40, Melody: []models.NoteEvent{{Pitch: 1000, DurationBeats: math.Inf(1)}, {Pitch: 60, DurationBeats: 1e20}}},
	}

	for i, d := range descriptions {
		_, err := Encode(melody.Normalize(d))
		assert.NoError(t, err, "description %d", i)
	}
}

func TestEncodeShortestNoteLastsOneTick(t *testing.T) {
	c := melody.Normalize(models.MusicalDescription{
		Melody: []models.NoteEvent{{Pitch: -5, DurationBeats: 0.0001}},
	})

	data, err := Encode(c)
	require.NoError(t, err)
	// note on at delta 0, note off one tick later
	assert.True(t, bytes.Contains(data, []byte{0x00, 0x90, 0x30, 0x5a, 0x01, 0x80, 0x30, 0x00}))
}

func TestEncodeReadsBackWithSMFReader(t *testing.T) {
	notes := []models.CanonicalNote{
		{Pitch: 60, DurationBeats: 1, Velocity: 90},
		{Pitch: 64, DurationBeats: 0.5, Velocity: 100},
		{Pitch: 67, DurationBeats: 2.5, Velocity: 80},
		{Pitch: 60, DurationBeats: 0.25, Velocity: 70},
	}
	c := canonical(notes...)
	c.TempoBPM = 96
	c.TimeSignature = models.TimeSignature{Numerator: 3, Denominator: 4}

	data, err := Encode(c)
	require.NoError(t, err)

	s, err := smf.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)

	assert.EqualValues(t, 0, s.Format())
	require.Len(t, s.Tracks, 1)
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	require.True(t, ok)
	assert.EqualValues(t, 480, ticks.Resolution())

	type pair struct {
		key   uint8
		ticks uint32
	}
	var starts []uint8
	var ends []pair
	var ch, key, vel uint8
	for _, ev := range s.Tracks[0] {
		msg := gomidi.Message(ev.Message)
		if msg.GetNoteStart(&ch, &key, &vel) {
			assert.EqualValues(t, 0, ev.Delta)
			assert.EqualValues(t, 0, ch)
			starts = append(starts, key)
		} else if msg.GetNoteEnd(&ch, &key) {
			ends = append(ends, pair{key: key, ticks: ev.Delta})
		}
	}

	require.Len(t, starts, len(notes))
	require.Len(t, ends, len(notes))
	for i, n := range notes {
		assert.EqualValues(t, n.Pitch, starts[i])
		assert.EqualValues(t, n.Pitch, ends[i].key)
		assert.EqualValues(t, Ticks(n.DurationBeats), ends[i].ticks)
	}
}

func TestEncodeNotePairing(t *testing.T) {
	notes := make([]models.CanonicalNote, 0, 50)
	for i := 0; i < 50; i++ {
		notes = append(notes, models.CanonicalNote{Pitch: 48 + i%25, DurationBeats: float64(i%7+1) / 2, Velocity: 1 + i*2})
	}

	data, err := Encode(canonical(notes...))
	require.NoError(t, err)

	// Walk the note section: 4-byte note-on, VLQ delta, 3-byte note-off.
	pos := 22 + 7 + 8 + 3
	for i, n := range notes {
		require.Equal(t, []byte{0x00, 0x90, byte(n.Pitch), byte(n.Velocity)}, data[pos:pos+4], "note %d on", i)
		pos += 4
		delta, err := EncodeVLQ(uint32(Ticks(n.DurationBeats)))
		require.NoError(t, err)
		require.Equal(t, delta, data[pos:pos+len(delta)], "note %d delta", i)
		pos += len(delta)
		require.Equal(t, []byte{0x80, byte(n.Pitch), 0x00}, data[pos:pos+3], "note %d off", i)
		pos += 3
	}
	assert.Equal(t, []byte{0x00, 0xFF, 0x2F, 0x00}, data[pos:])
}

func TestTicks(t *testing.T) {
	assert.EqualValues(t, 480, Ticks(1))
	assert.EqualValues(t, 240, Ticks(0.5))
	assert.EqualValues(t, 160, Ticks(1.0/3))
	assert.EqualValues(t, 1200, Ticks(2.5))
}
