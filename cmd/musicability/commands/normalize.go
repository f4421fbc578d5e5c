package commands

import (
	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/musicability-api/internal/melody"
	"github.com/Conceptual-Machines/musicability-api/internal/models"
	"github.com/Conceptual-Machines/musicability-api/internal/payload"
)

type normalizeResult struct {
	Description models.CanonicalDescription `json:"description" yaml:"description"`
	TotalBeats  float64                     `json:"total_beats" yaml:"total_beats"`
	Warnings    []payload.Warning           `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Print the canonical form of a melody description",
	Long: `Print the canonical description the encoder would use: defaults filled
in, pitches clamped to C3..C5, invalid velocities replaced.

Output is YAML unless --json is given.

Example:
  musicability normalize -f reply.txt --json`,
	Args: cobra.NoArgs,
	RunE: runNormalize,
}

func runNormalize(cmd *cobra.Command, _ []string) error {
	d, warnings, err := readDescription(cmd)
	if err != nil {
		return err
	}

	c := melody.Normalize(d)
	return outputResult(cmd.OutOrStdout(), normalizeResult{
		Description: c,
		TotalBeats:  c.TotalBeats(),
		Warnings:    warnings,
	})
}
