package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ChrisMcGann/CliqueKey/pkg/engine"
	"github.com/ChrisMcGann/CliqueKey/pkg/writer/sqlite"
)

func init() {
	batchCmd.Flags().StringP("out", "o", "", "SQLite database receiving every run (required)")
	batchCmd.Flags().Int("threads", 4, "Number of samples grouped concurrently")
	batchCmd.Flags().String("scans-file", "scans.mgf", "Scan file name inside each sample directory")
	batchCmd.Flags().String("features-file", "features.csv", "Feature table name inside each sample directory")
	registerGroupingFlags(batchCmd.Flags())

	batchCmd.MarkFlagRequired("out")
}

var batchCmd = &cobra.Command{
	Use:   "batch [sample-dir...]",
	Short: "Group several samples into one database",
	Long: `Group every sample directory given as argument. Each directory holds a
scan file and a feature table; the directory name is used as the sample name.
Samples run concurrently, each in its own engine, and all runs are written to
the same database.

Examples:
  cliquekey batch --out cliques.db --threads 8 samples/*`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	name, assigner, err := lookupAssigner()
	if err != nil {
		return err
	}

	threads := vip.GetInt("threads")
	if threads < 1 {
		threads = 1
	}

	samples, err := sampleNames(args)
	if err != nil {
		return err
	}

	w, err := sqlite.NewWriter(vip.GetString("out"))
	if err != nil {
		return err
	}

	params := groupingParams()
	scansFile := vip.GetString("scans-file")
	featuresFile := vip.GetString("features-file")

	results := make([]*engine.Result, len(args))

	group, ctx := errgroup.WithContext(cmd.Context())
	group.SetLimit(threads)
	for i, dir := range args {
		group.Go(func() error {
			sample := samples[i]
			sampleLog := log.With(zap.String("sample", sample))

			scans, features, err := loadSample(filepath.Join(dir, scansFile), filepath.Join(dir, featuresFile))
			if err != nil {
				return fmt.Errorf("sample %s: %w", sample, err)
			}

			eng, err := engine.New(scans, features, assigner,
				engine.WithLogger(sampleLog),
				engine.WithObserver(engine.LogObserver(sampleLog)),
				engine.WithTraceBuilder(traceBuilder()))
			if err != nil {
				return fmt.Errorf("sample %s: %w", sample, err)
			}
			res, err := eng.ComputeCliques(ctx, params)
			if err != nil {
				return fmt.Errorf("sample %s: %w", sample, err)
			}

			if _, err := w.WriteRun(sqlite.Run{Sample: sample, Assigner: name, Params: params, Result: res}); err != nil {
				return fmt.Errorf("sample %s: %w", sample, err)
			}

			results[i] = res
			sampleLog.Info("sample grouped", zap.Int("cliques", res.CliqueCount), zap.Int("removed", res.RemovedCount))
			return nil
		})
	}

	err = group.Wait()
	if ferr := w.Finalize(); err == nil {
		err = ferr
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Grouped %d samples into %s\n", len(results), vip.GetString("out"))
	for i, res := range results {
		fmt.Fprintf(out, "  %s: %d features, %d cliques, %d removed\n",
			samples[i], len(res.Features)+len(res.Removed), res.CliqueCount, res.RemovedCount)
	}
	return nil
}

// sampleNames names each sample after its directory. Two directories with the
// same name would be indistinguishable in the database and are rejected.
func sampleNames(dirs []string) ([]string, error) {
	names := make([]string, len(dirs))
	seen := make(map[string]string, len(dirs))
	for i, dir := range dirs {
		dir = filepath.Clean(dir)
		name := filepath.Base(dir)
		if prev, ok := seen[name]; ok {
			return nil, Error.New("sample name %q used by both %s and %s", name, prev, dir)
		}
		seen[name] = dir
		names[i] = name
	}
	return names, nil
}
