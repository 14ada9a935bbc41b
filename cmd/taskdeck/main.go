package main

import (
	"os"

	"github.com/taskdeck/core/cmd"
)

func main() {
	// Command handlers print their own error text; the exit code is all
	// that is left to signal here.
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
