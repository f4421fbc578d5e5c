package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	inputFile   string
	outputFile  string
	inputFormat string
	selectExpr  string
	outputJSON  bool
	maxNotes    int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "musicability",
	Short: "Turn melody descriptions into MIDI files",
	Long: `MusicAbility CLI - offline counterpart of the MusicAbility API.

A melody description is a JSON, YAML or msgpack document (or a raw model
reply containing one) with a tempo, time signature and an ordered list of
notes. Missing or out-of-range values are repaired before encoding.

Examples:
  # Encode a description file
  musicability encode -f melody.json -o melody.mid

  # Encode straight from a chat completion response
  musicability encode -f reply.json --select '.choices[0].message.content'

  # Inspect what the encoder will use
  musicability normalize -f melody.yaml

  # Listen to it
  musicability preview -f melody.json -o melody.wav
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&inputFile, "file", "f", "", "input description file (default: stdin)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file")
	rootCmd.PersistentFlags().StringVar(&inputFormat, "format", "", "input format: json, yaml, msgpack or text (default: from file extension)")
	rootCmd.PersistentFlags().StringVar(&selectExpr, "select", "", "jq expression selecting the description inside the input")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().IntVar(&maxNotes, "max-notes", 0, "reject melodies with more notes (0: no limit)")

	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(schemaCmd)
}
