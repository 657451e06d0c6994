package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errViolationsFound makes `check` exit non-zero without an error message.
var errViolationsFound = errors.New("style violations found")

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "Reviews the changed lines of pull requests for style violations",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(newServeCmd(), newCheckCmd())

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errViolationsFound) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
