package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/CliqueKey/pkg/engine"
	"github.com/ChrisMcGann/CliqueKey/pkg/writer/sqlite"
)

func init() {
	groupCmd.Flags().String("scans", "", "MGF file with the raw scans (required)")
	groupCmd.Flags().String("features", "", "CSV or TSV feature table (required)")
	groupCmd.Flags().StringP("out", "o", "", "Also write the result to this SQLite database")
	groupCmd.Flags().String("sample", "", "Sample name recorded in the database (default: scans file name)")
	registerGroupingFlags(groupCmd.Flags())

	groupCmd.MarkFlagRequired("scans")
	groupCmd.MarkFlagRequired("features")
}

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Group the features of one sample into cliques",
	Long: `Group the features of one sample into cliques and print one
row_id, node_id, clique_id line per feature.

Examples:
  # Group with the default log-likelihood assigner
  cliquekey group --scans sample.mgf --features features.csv

  # Remove near duplicates first and keep the result in a database
  cliquekey group --scans sample.mgf --features features.csv --filter --out cliques.db`,
	RunE: runGroup,
}

func runGroup(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	name, assigner, err := lookupAssigner()
	if err != nil {
		return err
	}

	scansPath := vip.GetString("scans")
	scans, features, err := loadSample(scansPath, vip.GetString("features"))
	if err != nil {
		return err
	}

	sample := vip.GetString("sample")
	if sample == "" {
		sample = strings.TrimSuffix(filepath.Base(scansPath), filepath.Ext(scansPath))
	}
	log = log.With(zap.String("sample", sample))
	log.Info("grouping features",
		zap.Int("scans", len(scans)),
		zap.Int("features", len(features)),
		zap.String("assigner", name))

	eng, err := engine.New(scans, features, assigner,
		engine.WithLogger(log),
		engine.WithObserver(engine.LogObserver(log)),
		engine.WithTraceBuilder(traceBuilder()))
	if err != nil {
		return err
	}

	params := groupingParams()
	res, err := eng.ComputeCliques(cmd.Context(), params)
	if err != nil {
		return err
	}

	if err := writeTSV(cmd.OutOrStdout(), res); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	if out := vip.GetString("out"); out != "" {
		w, err := sqlite.NewWriter(out)
		if err != nil {
			return err
		}
		if _, err := w.WriteRun(sqlite.Run{Sample: sample, Assigner: name, Params: params, Result: res}); err != nil {
			_ = w.Close()
			return err
		}
		if err := w.Finalize(); err != nil {
			return err
		}
		log.Info("wrote database", zap.String("path", out))
	}

	log.Info("grouping complete",
		zap.Int("cliques", res.CliqueCount),
		zap.Int("removed", res.RemovedCount),
		zap.Int("backfilled", res.BackfilledCount))
	return nil
}
