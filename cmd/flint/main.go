// Command flint is a thin cobra entrypoint over internal/vault. It
// carries no CLI design of its own — every subcommand is a short call
// into the engine, here to exercise the library end-to-end and give
// the script tests a process to drive.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "flint",
	Short: "Local note-engine core for a markdown vault",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
