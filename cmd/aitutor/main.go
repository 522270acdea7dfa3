// Command aitutor is the entry point for the AI Tutor backend.
// It provides a CLI interface (via Cobra) for running lessons in the
// terminal and an HTTP server that powers the web frontend.
package main

import (
	"fmt"
	"os"

	"github.com/ECampbell37/ai-tutor-go/cmd/aitutor/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
