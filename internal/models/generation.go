package models

import (
	"encoding/json"
	"time"
)

// GenerationRecord tracks a rendered and stored melody
type GenerationRecord struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id" msgpack:"id"`
	CreatedAt    time.Time `gorm:"index" json:"created_at" msgpack:"created_at"`
	UserID       string    `gorm:"index" json:"user_id,omitempty" msgpack:"user_id"`
	RequestID    string    `gorm:"index" json:"request_id,omitempty" msgpack:"request_id"`
	Title        string    `json:"title" msgpack:"title"`
	Key          string    `json:"key" msgpack:"key"`
	TempoBPM     int       `gorm:"not null" json:"tempo_bpm" msgpack:"tempo_bpm"`
	Numerator    int       `gorm:"not null" json:"numerator" msgpack:"numerator"`
	Denominator  int       `gorm:"not null" json:"denominator" msgpack:"denominator"`
	LengthBars   int       `gorm:"not null" json:"length_bars" msgpack:"length_bars"`
	NoteCount    int       `gorm:"not null" json:"note_count" msgpack:"note_count"`
	TotalBeats   float64   `gorm:"not null" json:"total_beats" msgpack:"total_beats"`
	MIDISize     int       `gorm:"column:midi_size;not null" json:"midi_size" msgpack:"midi_size"`
	Filename     string    `gorm:"not null" json:"filename" msgpack:"filename"`
	ArtifactPath string    `gorm:"not null" json:"-" msgpack:"artifact_path"`
	Canonical    string    `gorm:"type:text;not null" json:"-" msgpack:"canonical"` // JSON of the CanonicalDescription
}

// NewGenerationRecord builds a record from a canonical description and its encoded size
func NewGenerationRecord(id string, c CanonicalDescription, midiSize int) (*GenerationRecord, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return &GenerationRecord{
		ID:          id,
		CreatedAt:   time.Now().UTC(),
		Title:       c.Title,
		Key:         c.Key,
		TempoBPM:    c.TempoBPM,
		Numerator:   c.TimeSignature.Numerator,
		Denominator: c.TimeSignature.Denominator,
		LengthBars:  c.LengthBars,
		NoteCount:   len(c.Melody),
		TotalBeats:  c.TotalBeats(),
		MIDISize:    midiSize,
		Canonical:   string(raw),
	}, nil
}

// CanonicalDescription decodes the stored canonical description
func (r *GenerationRecord) CanonicalDescription() (CanonicalDescription, error) {
	var c CanonicalDescription
	err := json.Unmarshal([]byte(r.Canonical), &c)
	return c, err
}
