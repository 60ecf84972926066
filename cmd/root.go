package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/onlinematch/obmrl/obm"
)

var (
	// Flags shared by every subcommand
	configPath string // YAML options file; defaults apply when empty
	seed       int64  // Overrides the seed from the options file
	logLevel   string // Log verbosity level
	outPath    string // Output file for generate and init
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "obmrl",
	Short: "Policy decoding for online bipartite matching",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// loadOptions reads --config (or the defaults) and applies flags the user set
// explicitly. Flags left at their defaults never override the file.
func loadOptions(cmd *cobra.Command) (obm.Options, error) {
	opts := obm.DefaultOptions()
	if configPath != "" {
		var err error
		if opts, err = obm.LoadOptions(configPath); err != nil {
			return opts, err
		}
	}
	if cmd.Flags().Changed("seed") {
		opts.Seed = seed
	}
	return opts, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML options file")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 1234, "Seed for instance generation, parameter init and sampling")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(evalCmd)
}
