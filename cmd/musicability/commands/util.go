package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/musicability-api/internal/melody"
	"github.com/Conceptual-Machines/musicability-api/internal/models"
	"github.com/Conceptual-Machines/musicability-api/internal/payload"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681")).Width(10)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f0b429"))
)

// readDescription loads and decodes the input description. Stdin defaults to
// text so that raw model replies can be piped in.
func readDescription(cmd *cobra.Command) (models.MusicalDescription, []payload.Warning, error) {
	var (
		data   []byte
		err    error
		format = payload.FormatText
	)
	if inputFile == "" || inputFile == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(inputFile)
		format = payload.FormatFromPath(inputFile)
	}
	if err != nil {
		return models.MusicalDescription{}, nil, fmt.Errorf("failed to read input: %w", err)
	}

	if inputFormat != "" {
		format, err = payload.ParseFormat(inputFormat)
		if err != nil {
			return models.MusicalDescription{}, nil, err
		}
	}

	return payload.Decode(data, payload.Options{
		Format:   format,
		Query:    selectExpr,
		MaxNotes: maxNotes,
	})
}

// saveToFile saves data to a file, creating parent directories
func saveToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// outputResult writes result as YAML, or JSON with --json
func outputResult(w io.Writer, result any) error {
	if outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// printSummary describes a rendered file on w
func printSummary(w io.Writer, path string, size int, c models.CanonicalDescription, warnings []payload.Warning) {
	title := c.Title
	if title == "" {
		title = "untitled"
	}
	fmt.Fprintln(w, titleStyle.Render("✓ "+title))
	fmt.Fprintln(w, labelStyle.Render("file")+fmt.Sprintf("%s (%s)", path, formatBytes(size)))
	fmt.Fprintln(w, labelStyle.Render("tempo")+fmt.Sprintf("%d bpm", c.TempoBPM))
	fmt.Fprintln(w, labelStyle.Render("meter")+fmt.Sprintf("%d/%d, %d bars", c.TimeSignature.Numerator, c.TimeSignature.Denominator, c.LengthBars))
	fmt.Fprintln(w, labelStyle.Render("notes")+fmt.Sprintf("%d (%s)", len(c.Melody), noteRange(c)))
	fmt.Fprintln(w, labelStyle.Render("length")+fmt.Sprintf("%.1f beats, %s", c.TotalBeats(), c.Duration().Round(100*time.Millisecond)))
	for _, warning := range warnings {
		fmt.Fprintln(w, warnStyle.Render("⚠ "+warning.String()))
	}
}

func noteRange(c models.CanonicalDescription) string {
	if len(c.Melody) == 0 {
		return "empty"
	}
	lo, hi := c.Melody[0].Pitch, c.Melody[0].Pitch
	for _, n := range c.Melody[1:] {
		lo = min(lo, n.Pitch)
		hi = max(hi, n.Pitch)
	}
	return melody.NoteName(lo) + ".." + melody.NoteName(hi)
}

// formatBytes formats bytes to human readable format
func formatBytes(bytes int) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
