package melody

import (
	"fmt"
	"strconv"
	"strings"
)

var noteOffsets = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

var sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteNameToMIDI converts a note name like "C4", "Bb3" or "F#-1" to a MIDI
// note number (C4 = 60). The result is clamped to 0..127.
func NoteNameToMIDI(noteName string) (int, error) {
	noteName = strings.TrimSpace(noteName)
	if len(noteName) < 2 {
		return 0, fmt.Errorf("note name too short: %q", noteName)
	}

	letter := strings.ToUpper(noteName[:1])[0]
	semitone, ok := noteOffsets[letter]
	if !ok {
		return 0, fmt.Errorf("invalid note letter: %q", noteName[:1])
	}

	// Accidental (# or b)
	idx := 1
	switch noteName[idx] {
	case '#':
		semitone++
		idx++
	case 'b':
		semitone--
		idx++
	}

	if idx >= len(noteName) {
		return 0, fmt.Errorf("missing octave in note name: %q", noteName)
	}

	octave, err := strconv.Atoi(noteName[idx:])
	if err != nil {
		return 0, fmt.Errorf("invalid octave in note name %q: %w", noteName, err)
	}

	// (octave + 1) * 12 + semitone gives C-1 = 0, C0 = 12, C4 = 60
	return clampInt((octave+1)*12+semitone, 0, 127), nil
}

// NoteName returns the sharp-spelled name of a MIDI note number (60 -> "C4").
func NoteName(pitch int) string {
	pitch = clampInt(pitch, 0, 127)
	return fmt.Sprintf("%s%d", sharpNames[pitch%12], pitch/12-1)
}
