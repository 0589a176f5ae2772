// Package filter removes near-duplicate features that upstream peak detection
// split into separate entries.
package filter

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/zeebo/errs"

	"github.com/ChrisMcGann/CliqueKey/pkg/core"
	"github.com/ChrisMcGann/CliqueKey/pkg/similarity"
)

// Error is the error class for duplicate filtering.
var Error = errs.Class("filter")

// DefaultSimilarityThreshold is the similarity a pair must exceed to be compared further.
const DefaultSimilarityThreshold = 0.99

// Config holds duplicate filtering configuration. Tolerances are compared
// against the two-sided relative difference |a-b|/|a|, so the order of a pair
// does not matter.
type Config struct {
	MZTolerance         float64 // Relative m/z difference below which features are duplicates
	RTTolerance         float64 // Relative retention time difference
	IntensityTolerance  float64 // Relative intensity difference
	SimilarityThreshold float64 // Trace similarity a pair must exceed (0 = DefaultSimilarityThreshold)
}

// DefaultConfig returns the tolerances used when none are configured.
func DefaultConfig() Config {
	return Config{
		MZTolerance:         0.000005,
		RTTolerance:         0.0001,
		IntensityTolerance:  0.0001,
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

// Pair is an unordered pair of feature indices with I < J.
type Pair struct {
	I, J       int
	Similarity float64
}

// Result is the outcome of Apply.
type Result struct {
	Features []core.Feature     // Surviving features, input order
	Matrix   *similarity.Matrix // Matrix over surviving features
	Kept     []int              // Indices of surviving features in the input
	Removed  []core.Feature     // Features removed as near-duplicates
}

func (c *Config) threshold() float64 {
	if c.SimilarityThreshold == 0 {
		return DefaultSimilarityThreshold
	}
	return c.SimilarityThreshold
}

// Candidates returns every pair whose similarity exceeds the threshold.
func (c *Config) Candidates(m *similarity.Matrix) []Pair {
	threshold := c.threshold()

	var pairs []Pair
	for i := 0; i < m.Len(); i++ {
		row := m.Row(i)
		for j := i + 1; j < m.Len(); j++ {
			if row[j] > threshold {
				pairs = append(pairs, Pair{I: i, J: j, Similarity: row[j]})
			}
		}
	}
	return pairs
}

// Duplicates returns the ascending, de-duplicated indices of features to delete.
// For every candidate pair within all three tolerances the lower index is deleted.
func (c *Config) Duplicates(m *similarity.Matrix, features []core.Feature) []int {
	marked := roaring.New()

	for _, p := range c.Candidates(m) {
		a, b := &features[p.I], &features[p.J]
		if relativeDiff(a.MZ, b.MZ) < c.MZTolerance &&
			relativeDiff(a.RT, b.RT) < c.RTTolerance &&
			relativeDiff(a.Intensity, b.Intensity) < c.IntensityTolerance {
			marked.Add(uint32(p.I))
		}
	}

	indices := make([]int, 0, marked.GetCardinality())
	it := marked.Iterator()
	for it.HasNext() {
		indices = append(indices, int(it.Next()))
	}
	return indices
}

// Apply removes near-duplicate features and the matching matrix rows and
// columns. When nothing qualifies the inputs are returned unchanged.
func (c *Config) Apply(m *similarity.Matrix, features []core.Feature) (*Result, error) {
	if m.Len() != len(features) {
		return nil, Error.New("matrix dimension %d does not match %d features", m.Len(), len(features))
	}

	deleted := c.Duplicates(m, features)
	if len(deleted) == 0 {
		kept := make([]int, len(features))
		for i := range kept {
			kept[i] = i
		}
		return &Result{Features: features, Matrix: m, Kept: kept}, nil
	}

	res := &Result{
		Features: make([]core.Feature, 0, len(features)-len(deleted)),
		Kept:     make([]int, 0, len(features)-len(deleted)),
		Removed:  make([]core.Feature, 0, len(deleted)),
	}

	// One cursor over the sorted deletions drives both features and matrix axes.
	cursor := 0
	for i := range features {
		if cursor < len(deleted) && deleted[cursor] == i {
			res.Removed = append(res.Removed, features[i])
			cursor++
			continue
		}
		res.Kept = append(res.Kept, i)
		res.Features = append(res.Features, features[i])
	}
	res.Matrix = m.Project(res.Kept)

	return res, nil
}

// relativeDiff returns |a-b| relative to a. A zero reference only matches itself.
func relativeDiff(a, b float64) float64 {
	if a == 0 {
		if b == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(a-b) / math.Abs(a)
}
