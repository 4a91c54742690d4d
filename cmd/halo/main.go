// Package main provides the halo CLI tool.
//
// Usage:
//
//	halo [flags] <command> [args]
//
// Commands:
//
//	patient   - Manage patient records
//	send      - Append a typed message to a patient's log
//	log       - Print a patient's message log
//	edit      - Edit an existing log entry
//	record    - Capture audio and transcribe it continuously
//	summarize - Generate the AI summary and chart for a patient
//	report    - Render a patient's session report as markdown
//	serve     - Serve the live websocket log view
//
// Configuration:
//
//	The CLI stores configuration in ~/.halo/config.yaml and its database
//	under ~/.halo/data by default.
package main

import (
	"fmt"
	"os"

	"github.com/ScrewVolt/halov2/cmd/halo/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
