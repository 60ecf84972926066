package cmd

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/onlinematch/obmrl/obm"
	"github.com/onlinematch/obmrl/obm/dataset"
	"github.com/onlinematch/obmrl/obm/trace"
)

var (
	dataDir        string // Directory searched for dataset files
	matchPattern   string // Glob over paths relative to dataDir
	checkpointPath string // Parameters to evaluate; fresh init when empty
	decodeType     string // Overrides decode.decode_type
	batchSize      int    // Overrides decode.batch_size
	traceLevel     string // Overrides trace.level
)

// evalCmd runs the policy over every matching dataset file.
var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a policy on stored datasets",
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := loadOptions(cmd)
		if err != nil {
			logrus.Fatalf("Loading options: %v", err)
		}
		if cmd.Flags().Changed("decode-type") {
			opts.Decode.Type = decodeType
		}
		if cmd.Flags().Changed("batch-size") {
			opts.Decode.BatchSize = batchSize
		}
		if cmd.Flags().Changed("trace-level") {
			opts.Trace.Level = traceLevel
		}
		files, err := findDatasets(dataDir, matchPattern)
		if err != nil {
			logrus.Fatalf("Finding datasets: %v", err)
		}
		if len(files) == 0 {
			logrus.Fatalf("No dataset under %s matches %q", dataDir, matchPattern)
		}
		if err := evaluateFiles(os.Stdout, opts, files, checkpointPath); err != nil {
			logrus.Fatalf("Evaluating: %v", err)
		}
	},
}

// findDatasets walks dir and returns, sorted, every dataset file whose path
// relative to dir matches pattern ('/' separated).
func findDatasets(dir, pattern string) ([]string, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid --match pattern %q: %w", pattern, err)
	}
	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, dataset.FileExt) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if g.Match(filepath.ToSlash(rel)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// evaluateFiles evaluates every file under one run id. The policy is rebuilt
// per file to the file's problem and sizes; parameters do not depend on them,
// so a single checkpoint serves all files.
func evaluateFiles(w io.Writer, opts obm.Options, files []string, checkpoint string) error {
	runID := uuid.New()
	log := logrus.WithField("run", runID.String())
	log.Infof("Evaluating %d dataset(s) with %s/%s decoding", len(files), opts.Model.Policy, opts.Decode.Type)

	for _, path := range files {
		d, err := dataset.Load(path)
		if err != nil {
			return err
		}
		fileOpts := opts
		fileOpts.Graph.Problem = d.Problem
		fileOpts.Graph.USize = d.USize
		fileOpts.Graph.VSize = d.VSize

		p, err := obm.NewPolicy(fileOpts, obm.NewPartitionedRNG(obm.NewRunKey(opts.Seed)))
		if err != nil {
			return err
		}
		if checkpoint != "" {
			if err := obm.LoadCheckpoint(checkpoint, p); err != nil {
				return err
			}
		}
		m, err := obm.Evaluate(p, d, fileOpts.Decode.BatchSize)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		mean, _ := m.MeanValue()
		log.WithField("file", path).Infof("mean value %.4f over %d instances", mean, m.Instances)

		fmt.Fprintf(w, "Run %s, dataset %s\n", runID, path)
		m.Print(w)
		if p.Trace != nil {
			printTraceSummary(w, trace.Summarize(p.Trace))
		}
	}
	return nil
}

func printTraceSummary(w io.Writer, s *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Decision Trace ===")
	fmt.Fprintf(w, "Decisions            : %d\n", s.TotalDecisions)
	fmt.Fprintf(w, "Matches / Skips      : %d / %d (forced %d)\n", s.MatchCount, s.SkipCount, s.ForcedSkips)
	fmt.Fprintf(w, "Mean / Max Regret    : %.4f / %.4f\n", s.MeanRegret, s.MaxRegret)
	fmt.Fprintf(w, "Unique Slots         : %d\n", s.UniqueSlots)
}

func init() {
	evalCmd.Flags().StringVar(&dataDir, "data-dir", "data", "Directory searched for dataset files")
	evalCmd.Flags().StringVar(&matchPattern, "match", "**"+dataset.FileExt, "Glob over dataset paths relative to --data-dir")
	evalCmd.Flags().StringVar(&checkpointPath, "checkpoint", "", "Parameter checkpoint (.msgp.lz4); random init when empty")
	evalCmd.Flags().StringVar(&decodeType, "decode-type", "greedy", "Decode type (greedy, sampling)")
	evalCmd.Flags().IntVar(&batchSize, "batch-size", 100, "Instances decoded in lockstep")
	evalCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Decision trace level (none, decisions)")
}
