// Package main is the entry point for the checkarr application.
package main

import (
	"os"

	"github.com/jmylchreest/checkarr/cmd/checkarr/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
