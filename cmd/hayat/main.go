// Package main is the entry point for the hayat triage service.
//
// Usage:
//
//	hayat [flags] <command> [args]
//
// Commands:
//
//	serve       - Run the HTTP triage service
//	preprocess  - Convert an audio dataset into spectrogram images
//	extract     - Run the audio feature pipeline on one file
//	version     - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/projecthayat/hayat/cmd/hayat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
