package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/onlinematch/obmrl/obm"
	"github.com/onlinematch/obmrl/obm/dataset"
)

var numSamples int // Overrides graph.num_samples

// generateCmd draws a dataset of random instances and writes it to --out.
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a dataset of random bipartite instances",
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := loadOptions(cmd)
		if err != nil {
			logrus.Fatalf("Loading options: %v", err)
		}
		if cmd.Flags().Changed("samples") {
			opts.Graph.NumSamples = numSamples
		}
		if err := generateDataset(opts, outPath); err != nil {
			logrus.Fatalf("Generating dataset: %v", err)
		}
	},
}

// generateDataset draws opts.Graph.NumSamples instances from the dataset RNG
// subsystem and saves them to out.
func generateDataset(opts obm.Options, out string) error {
	if out == "" {
		return fmt.Errorf("--out is required")
	}
	rng := obm.NewPartitionedRNG(obm.NewRunKey(opts.Seed))
	d, err := dataset.Generate(opts.Graph, rng.ForSubsystem(obm.SubsystemDataset))
	if err != nil {
		return err
	}
	return dataset.Save(out, d)
}

func init() {
	generateCmd.Flags().StringVar(&outPath, "out", "", "Output dataset file (.msgp.lz4)")
	generateCmd.Flags().IntVar(&numSamples, "samples", 1000, "Number of instances to generate")
}
