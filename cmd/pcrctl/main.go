// Command pcrctl drives a 5R7-001 temperature controller through PCR
// thermal cycling runs and exposes its individual operations as
// subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Build variables set by ldflags
	buildVersion = "dev"
	buildCommit  string
)

func main() {
	a := &app{}
	err := newRootCmd(a).Execute()
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {

	rootCmd := &cobra.Command{
		Use:   "pcrctl",
		Short: "PCR thermal cycler control",
		Long: `pcrctl runs PCR thermal cycling profiles on a 5R7-001 temperature
controller over a serial link, and exposes the individual controller and
waiting operations for bench work.`,
		Version:       version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "TOML configuration file (defaults are used when empty)")
	flags.BoolVar(&a.simulate, "simulate", false, "Drive a simulated controller instead of the serial port")
	flags.StringVar(&a.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd(a))
	rootCmd.AddCommand(getCmd(a))
	rootCmd.AddCommand(setCmd(a))
	rootCmd.AddCommand(controlCmd(a))
	rootCmd.AddCommand(monitorCmd(a))
	rootCmd.AddCommand(sampleCmd(a))
	rootCmd.AddCommand(waitCmd(a))
	rootCmd.AddCommand(triggerCmd(a))
	rootCmd.AddCommand(incubateCmd(a))
	rootCmd.AddCommand(configCmd(a))

	return rootCmd
}

func version() string {
	if buildCommit == "" {
		return buildVersion
	}

	return buildVersion + " (" + buildCommit + ")"
}
