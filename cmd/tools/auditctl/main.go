// Command auditctl runs audit analyses on local instrument logs and follows the
// result events published by auditd
package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "auditctl",
		Short: "Air-monitoring audit analyses from the command line",
		Long: `auditctl loads one or more instrument logs, runs an audit analysis and prints
the result. The flagged dataset can be exported with --export.

Commands:
  zero   Zero-air baseline check
  cal    Calibration-gas recovery check
  mdl    Method detection limit
  imet   Met sensor cross-check against a Kestrel export
  watch  Follow result events from the configured queue`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to configuration file")
	flags.BoolVar(&opts.jsonOut, "json", false, "print the report as JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newZeroCommand(opts),
		newCalibrationCommand(opts),
		newMDLCommand(opts),
		newMetCommand(opts),
		newWatchCommand(opts),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "auditctl %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		},
	}
}
