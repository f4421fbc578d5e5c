package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/musicability-api/internal/payload"
)

const melodyJSON = `{
  "title": "Morning Walk",
  "tempo_bpm": 96,
  "time_signature": [3, 4],
  "melody": [
    {"pitch": "C4", "duration_beats": 1},
    {"pitch": 100, "duration_beats": 2, "velocity": 0}
  ]
}`

// run executes the root command with fresh global flags.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	inputFile, outputFile, inputFormat, selectExpr = "", "", "", ""
	outputJSON, maxNotes = false, 0
	sampleRate = 8000

	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestEncodeToFile(t *testing.T) {
	in := writeInput(t, "melody.json", melodyJSON)
	out := filepath.Join(t.TempDir(), "nested", "walk.mid")

	_, stderr, err := run(t, "", "encode", "-f", in, "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "MThd", string(data[:4]))
	assert.Contains(t, stderr, "Morning Walk")
	assert.Contains(t, stderr, "96 bpm")
	assert.Contains(t, stderr, "3/4")
	assert.Contains(t, stderr, "C4..C5")
}

func TestEncodeToStdout(t *testing.T) {
	stdout, _, err := run(t, "Sure!\n```json\n"+melodyJSON+"\n```", "encode", "-o", "-")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "MThd"))
}

func TestEncodeRejectsBadInput(t *testing.T) {
	_, _, err := run(t, "no melody here", "encode", "-o", "-")
	assert.ErrorIs(t, err, payload.ErrMalformed)

	_, _, err = run(t, melodyJSON, "encode", "-o", "-", "--max-notes", "1")
	assert.ErrorIs(t, err, payload.ErrTooManyNotes)

	_, _, err = run(t, melodyJSON, "encode", "-o", "-", "--format", "xml")
	assert.Error(t, err)
}

func TestPreviewToFile(t *testing.T) {
	in := writeInput(t, "melody.json", melodyJSON)
	out := filepath.Join(t.TempDir(), "walk.wav")

	_, _, err := run(t, "", "preview", "-f", in, "-o", out, "--sample-rate", "8000")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data[:4]))
}

func TestNormalizeYAML(t *testing.T) {
	in := writeInput(t, "melody.yaml", "title: Lullaby\ntempo_bpm: 0\nmelody:\n  - pitch: 30\n  - pitch: wrong\n")

	stdout, _, err := run(t, "", "normalize", "-f", in)
	require.NoError(t, err)

	var result normalizeResult
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, "Lullaby", result.Description.Title)
	assert.Equal(t, 120, result.Description.TempoBPM)
	require.Len(t, result.Description.Melody, 1)
	assert.Equal(t, 48, result.Description.Melody[0].Pitch)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "pitch", result.Warnings[0].Field)
}

func TestNormalizeJSONWithSelect(t *testing.T) {
	envelope := `{"data": ` + melodyJSON + `}`

	stdout, _, err := run(t, envelope, "normalize", "--json", "--format", "json", "--select", ".data")
	require.NoError(t, err)

	var result normalizeResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, 96, result.Description.TempoBPM)
	assert.Equal(t, 3, result.Description.TimeSignature.Numerator)
	assert.Equal(t, 90, result.Description.Melody[1].Velocity)
	assert.Equal(t, 72, result.Description.Melody[1].Pitch)
	assert.Equal(t, 3.0, result.TotalBeats)
}

func TestSchema(t *testing.T) {
	stdout, _, err := run(t, "", "schema")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, "MusicalDescription", doc["title"])

	out := filepath.Join(t.TempDir(), "schema.yaml")
	_, _, err = run(t, "", "schema", "-o", out)
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "title: MusicalDescription")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2*1024*1024))
}
