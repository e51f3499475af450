// Package main is the entry point for the tmask CLI.
package main

import (
	"os"

	"github.com/abdul-hamid-achik/tinymask/cmd/tmask/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
