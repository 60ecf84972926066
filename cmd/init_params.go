package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/onlinematch/obmrl/obm"
)

// initCmd writes freshly initialised policy parameters to --out.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write randomly initialised policy parameters",
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := loadOptions(cmd)
		if err != nil {
			logrus.Fatalf("Loading options: %v", err)
		}
		if err := initCheckpoint(opts, outPath); err != nil {
			logrus.Fatalf("Initialising parameters: %v", err)
		}
	},
}

func initCheckpoint(opts obm.Options, out string) error {
	if out == "" {
		return fmt.Errorf("--out is required")
	}
	p, err := obm.NewPolicy(opts, obm.NewPartitionedRNG(obm.NewRunKey(opts.Seed)))
	if err != nil {
		return err
	}
	return obm.SaveCheckpoint(out, p)
}

func init() {
	initCmd.Flags().StringVar(&outPath, "out", "", "Output checkpoint file (.msgp.lz4)")
}
