package preview

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Conceptual-Machines/musicability-api/internal/models"
)

// ErrTooLong is returned when a melody would render longer than MaxDuration.
var ErrTooLong = errors.New("preview too long")

const (
	DefaultSampleRate = 44100
	MaxDuration       = 10 * time.Minute

	tail      = 300 * time.Millisecond
	attack    = 0.020
	decay     = 0.040
	release   = 0.060
	sustain   = 0.6
	gain      = 0.35
	peakLevel = 32000.0
)

// Options configures Render.
type Options struct {
	SampleRate int
}

// Render synthesizes c as a 16-bit mono PCM WAV. Notes play back to back,
// each a sine tone with two quiet harmonics under a simple ADSR envelope.
func Render(c models.CanonicalDescription, opts Options) ([]byte, error) {
	samples, rate, err := Synthesize(c, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WriteWAV(&buf, samples, rate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Synthesize returns the PCM samples for c and the sample rate used.
func Synthesize(c models.CanonicalDescription, opts Options) ([]int16, int, error) {
	rate := opts.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	if c.TempoBPM <= 0 {
		return nil, 0, fmt.Errorf("invalid tempo %d", c.TempoBPM)
	}

	secondsPerBeat := 60.0 / float64(c.TempoBPM)
	seconds := c.TotalBeats()*secondsPerBeat + tail.Seconds()
	if seconds > MaxDuration.Seconds() {
		return nil, 0, fmt.Errorf("%w: %.0fs exceeds %s", ErrTooLong, seconds, MaxDuration)
	}

	total := int(math.Round(seconds * float64(rate)))
	buf := make([]float64, total)

	att := int(attack * float64(rate))
	dec := int(decay * float64(rate))
	rel := int(release * float64(rate))

	start := 0.0
	for _, n := range c.Melody {
		freq := 440.0 * math.Pow(2, float64(n.Pitch-69)/12)
		vel := float64(n.Velocity) / 127
		dur := n.DurationBeats * secondsPerBeat
		s0 := int(start * float64(rate))
		ns := int(dur * float64(rate))
		if s0+ns > total {
			ns = total - s0
		}

		for i := 0; i < ns; i++ {
			t := float64(i) / float64(rate)
			sample := math.Sin(2*math.Pi*freq*t) +
				0.3*math.Sin(4*math.Pi*freq*t) +
				0.1*math.Sin(6*math.Pi*freq*t)
			buf[s0+i] += sample * vel * envelope(i, ns, att, dec, rel) * gain
		}
		start += dur
	}

	peak := 0.0
	for _, s := range buf {
		peak = math.Max(peak, math.Abs(s))
	}
	if peak < 1e-6 {
		peak = 1
	}
	scale := peakLevel / peak

	pcm := make([]int16, total)
	for i, s := range buf {
		pcm[i] = int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, s*scale)))
	}
	return pcm, rate, nil
}

func envelope(i, ns, att, dec, rel int) float64 {
	switch {
	case i < att:
		return float64(i) / float64(att)
	case i < att+dec:
		return 1 - (1-sustain)*float64(i-att)/float64(dec)
	case i < ns-rel:
		return sustain
	case rel > 0:
		return sustain * float64(ns-i) / float64(rel)
	default:
		return 0
	}
}

type wavHeader struct {
	RIFF          [4]byte
	ChunkSize     uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

// WriteWAV writes mono 16-bit PCM samples as a canonical 44-byte-header WAV.
func WriteWAV(w *bytes.Buffer, samples []int16, sampleRate int) error {
	dataSize := uint32(len(samples) * 2)
	header := wavHeader{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1,
		Channels:      1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * 2),
		BlockAlign:    2,
		BitsPerSample: 16,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}
	w.Grow(44 + int(dataSize))
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed writing WAV header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("failed writing WAV samples: %w", err)
	}
	return nil
}
