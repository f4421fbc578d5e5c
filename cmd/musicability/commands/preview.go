package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/musicability-api/internal/melody"
	"github.com/Conceptual-Machines/musicability-api/internal/preview"
	"github.com/Conceptual-Machines/musicability-api/internal/services"
)

var sampleRate int

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render a melody description as a WAV preview",
	Long: `Render a melody description as a 16-bit mono WAV file.

Notes play back to back as soft sine tones. Use -o - to write the WAV bytes
to stdout.

Example:
  musicability preview -f melody.json -o melody.wav --sample-rate 22050`,
	Args: cobra.NoArgs,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().IntVar(&sampleRate, "sample-rate", preview.DefaultSampleRate, "sample rate in Hz")
}

func runPreview(cmd *cobra.Command, _ []string) error {
	d, warnings, err := readDescription(cmd)
	if err != nil {
		return err
	}

	c := melody.Normalize(d)
	data, err := preview.Render(c, preview.Options{SampleRate: sampleRate})
	if err != nil {
		return fmt.Errorf("failed to render preview: %w", err)
	}

	path := outputFile
	if path == "" {
		path = services.Filename(c.Title, ".wav")
	}
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := saveToFile(path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	printSummary(cmd.ErrOrStderr(), path, len(data), c, warnings)
	return nil
}
