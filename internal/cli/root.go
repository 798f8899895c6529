// Package cli implements the space-master command line.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	// Version is set via -ldflags at build time.
	Version = "dev"

	envFile string
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:           "space-master",
	Short:         "Allocate PE lessons to sports facilities",
	Long:          `space-master turns a rotating staff timetable and a curriculum of sport rules into dated PE allocations, either as an HTTP API or as a one-off run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with configuration")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAllocateCmd())
}
