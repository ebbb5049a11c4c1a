// Package main provides the entry point for the chemidx CLI.
package main

import (
	"os"

	"github.com/chemidx/chemidx/cmd/chemidx/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
