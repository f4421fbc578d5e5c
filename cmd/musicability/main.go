// Package main provides the MusicAbility command line tool.
//
// Usage:
//
//	musicability [flags] <command>
//
// Commands:
//
//	encode    - Encode a melody description as a Type-0 MIDI file
//	preview   - Render a melody description as a WAV preview
//	normalize - Print the canonical form of a melody description
//	schema    - Print the JSON Schema of the description payload
package main

import (
	"fmt"
	"os"

	"github.com/Conceptual-Machines/musicability-api/cmd/musicability/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
