package commands

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/musicability-api/internal/payload"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the description payload",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		schema, err := payload.Schema()
		if err != nil {
			return fmt.Errorf("failed to build schema: %w", err)
		}
		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return err
		}
		if !outputJSON && outputFile != "" && payload.FormatFromPath(outputFile) == payload.FormatYAML {
			if data, err = yaml.JSONToYAML(data); err != nil {
				return err
			}
		}
		if outputFile != "" {
			return saveToFile(outputFile, data)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}
