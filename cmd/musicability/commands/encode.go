package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/musicability-api/internal/melody"
	"github.com/Conceptual-Machines/musicability-api/internal/midi"
	"github.com/Conceptual-Machines/musicability-api/internal/services"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode a melody description as a Type-0 MIDI file",
	Long: `Encode a melody description as a single-track Standard MIDI File.

The output defaults to a file named after the melody title. Use -o - to
write the MIDI bytes to stdout.

Example:
  musicability encode -f melody.json -o melody.mid`,
	Args: cobra.NoArgs,
	RunE: runEncode,
}

func runEncode(cmd *cobra.Command, _ []string) error {
	d, warnings, err := readDescription(cmd)
	if err != nil {
		return err
	}

	c := melody.Normalize(d)
	data, err := midi.Encode(c)
	if err != nil {
		return fmt.Errorf("failed to encode MIDI: %w", err)
	}

	path := outputFile
	if path == "" {
		path = services.Filename(c.Title, ".mid")
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
