// Command regaccess-selftest wires a dummy backend and a subdevice
// passthrough behind it and drives them through a handful of scenarios
// from spec.md §8, printing pass/fail as it goes. It exists so the
// transfer/dispatch/subdevice stack can be exercised without any real
// hardware, in CI or by hand.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "regaccess-selftest",
	Short: "Exercise a dummy backend and a subdevice passthrough wired on top of it",
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
