// Package main is the entry point for testctl, the controller-side CLI.
package main

import (
	"os"

	"testplane/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
