// Package cli provides the vclock command-line interface.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// NewRootCommand builds the vclock command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "vclock",
		Short: "vclock runs pausable, speed-adjustable virtual clocks.",
		Long: `vclock runs a timer or a countdown on a real-time loop. The ` +
			`clock can be watched and controlled over HTTP with --monitor ` +
			`and its history recorded to SQLite or ClickHouse with --record.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
	}

	opts.bindFlags(rootCmd)

	rootCmd.AddCommand(newTimerCommand(opts))
	rootCmd.AddCommand(newCountdownCommand(opts))

	return rootCmd
}

// Execute runs the root command and exits the process, running the
// registered exit handlers first.
func Execute() {
	err := NewRootCommand().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
