package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/ChrisMcGann/CliqueKey/pkg/clique"
	"github.com/ChrisMcGann/CliqueKey/pkg/core"
	"github.com/ChrisMcGann/CliqueKey/pkg/engine"
	"github.com/ChrisMcGann/CliqueKey/pkg/filter"
	"github.com/ChrisMcGann/CliqueKey/pkg/reader/features"
	"github.com/ChrisMcGann/CliqueKey/pkg/reader/mgf"
	"github.com/ChrisMcGann/CliqueKey/pkg/trace"
)

// registerGroupingFlags adds the flags shared by every command that runs the engine.
func registerGroupingFlags(flags *pflag.FlagSet) {
	dup := filter.DefaultConfig()
	flags.Bool("filter", false, "Remove near-duplicate features before clique assignment")
	flags.Float64("mz-tol", dup.MZTolerance, "Relative m/z tolerance for duplicate detection")
	flags.Float64("rt-tol", dup.RTTolerance, "Relative retention time tolerance for duplicate detection")
	flags.Float64("intensity-tol", dup.IntensityTolerance, "Relative intensity tolerance for duplicate detection")
	flags.Float64("similarity", dup.SimilarityThreshold, "Similarity above which two features may be duplicates")
	flags.Float64("clique-tol", engine.DefaultParams().CliqueTolerance, "Tolerance passed to the clique assigner")
	flags.String("assigner", "loglik", "Clique assigner: "+strings.Join(clique.Names(), ", "))
	flags.Bool("exact-rt", false, "Require feature rt bounds to match scan times exactly")
	flags.Float64("rt-match-tol", 0, "Maximum distance when snapping rt bounds to scans (0 = half the widest scan gap)")
	flags.Bool("drop-zero-points", false, "Ignore zero-intensity data points when averaging trace samples")
}

func groupingParams() engine.Params {
	p := engine.DefaultParams()
	p.Filter = vip.GetBool("filter")
	p.Duplicates = filter.Config{
		MZTolerance:         vip.GetFloat64("mz-tol"),
		RTTolerance:         vip.GetFloat64("rt-tol"),
		IntensityTolerance:  vip.GetFloat64("intensity-tol"),
		SimilarityThreshold: vip.GetFloat64("similarity"),
	}
	p.CliqueTolerance = vip.GetFloat64("clique-tol")
	return p
}

func traceBuilder() *trace.Builder {
	b := &trace.Builder{Tolerance: vip.GetFloat64("rt-match-tol")}
	if vip.GetBool("exact-rt") {
		b.Match = trace.MatchExact
	}
	return b
}

func lookupAssigner() (string, clique.Assigner, error) {
	name := strings.ToLower(vip.GetString("assigner"))
	a, err := clique.Lookup(name)
	return name, a, err
}

// loadSample reads an MGF scan file and a feature table.
func loadSample(scansPath, featuresPath string) (core.ScanList, []core.Feature, error) {
	sf, err := os.Open(scansPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open scans: %w", err)
	}
	defer sf.Close()

	scans, err := mgf.ReadAll(sf)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", scansPath, err)
	}
	if vip.GetBool("drop-zero-points") {
		scans.RemoveZeroIntensityPoints()
	}

	ff, err := os.Open(featuresPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open features: %w", err)
	}
	defer ff.Close()

	rows, err := features.Read(ff, featureSeparator(featuresPath))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", featuresPath, err)
	}

	return scans, rows, nil
}

// featureSeparator picks tab for .tsv and .txt tables and comma otherwise.
func featureSeparator(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".txt", ".tab":
		return '\t'
	default:
		return ','
	}
}

// writeTSV writes one row_id, node_id, clique_id line per feature in row order.
// Removed features have an empty clique id.
func writeTSV(w io.Writer, res *engine.Result) error {
	cliques := make(map[int]int, len(res.Assignments))
	for _, a := range res.Assignments {
		cliques[a.NodeID] = a.CliqueID
	}

	all := make([]core.Feature, 0, len(res.Features)+len(res.Removed))
	all = append(all, res.Features...)
	all = append(all, res.Removed...)
	sort.Slice(all, func(i, j int) bool { return all[i].NodeID < all[j].NodeID })

	removed := make(map[int]bool, len(res.Removed))
	for _, f := range res.Removed {
		removed[f.NodeID] = true
	}

	if _, err := fmt.Fprintln(w, "row_id\tnode_id\tclique_id"); err != nil {
		return err
	}
	for _, f := range all {
		id := ""
		if !removed[f.NodeID] {
			id = fmt.Sprint(cliques[f.NodeID])
		}
		if _, err := fmt.Fprintf(w, "%d\t%d\t%s\n", f.RowID, f.NodeID, id); err != nil {
			return err
		}
	}
	return nil
}
