// Package core provides the feature and scan models shared by the grouping
// pipeline, together with their validation logic.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/zeebo/errs"
)

// Error is the error class for malformed input shapes.
var Error = errs.Class("core")

// Feature represents a single chromatographic peak detected in one sample.
type Feature struct {
	NodeID int // Stable identity used by clique assignment (>0)
	RowID  int // Row of the originating feature table

	MZ    float64
	MZMin float64
	MZMax float64

	RT    float64
	RTMin float64
	RTMax float64

	Intensity float64 // Peak height
}

// ValidationError represents an error found during feature or scan validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a feature is well formed.
func (f *Feature) Validate() error {
	var problems []string

	if f.NodeID <= 0 {
		problems = append(problems, "node id must be positive")
	}

	fields := []struct {
		name  string
		value float64
	}{
		{"mz", f.MZ}, {"mzmin", f.MZMin}, {"mzmax", f.MZMax},
		{"rt", f.RT}, {"rtmin", f.RTMin}, {"rtmax", f.RTMax},
		{"intensity", f.Intensity},
	}
	for _, field := range fields {
		if math.IsNaN(field.value) || math.IsInf(field.value, 0) {
			problems = append(problems, fmt.Sprintf("%s is not finite", field.name))
		}
	}

	if !(f.MZMin <= f.MZ && f.MZ <= f.MZMax) {
		problems = append(problems, "mz must lie within [mzmin, mzmax]")
	}
	if !(f.RTMin <= f.RT && f.RT <= f.RTMax) {
		problems = append(problems, "rt must lie within [rtmin, rtmax]")
	}
	if f.Intensity < 0 {
		problems = append(problems, "intensity must be non-negative")
	}

	if len(problems) > 0 {
		return &ValidationError{
			Field:   f.Name(),
			Message: strings.Join(problems, "; "),
		}
	}
	return nil
}

// Name returns the feature name in format "row/node".
func (f *Feature) Name() string {
	return fmt.Sprintf("feature %d/%d", f.RowID, f.NodeID)
}

// NewFeatures copies rows into a working feature sequence, numbering node ids
// by position starting at 1.
func NewFeatures(rows []Feature) []Feature {
	features := make([]Feature, len(rows))
	for i, row := range rows {
		features[i] = row
		features[i].NodeID = i + 1
	}
	return features
}

// ValidateFeatures validates every feature and rejects repeated node or row ids.
func ValidateFeatures(features []Feature) error {
	nodes := make(map[int]struct{}, len(features))
	rows := make(map[int]struct{}, len(features))
	for i := range features {
		f := &features[i]
		if err := f.Validate(); err != nil {
			return Error.Wrap(err)
		}
		if _, ok := nodes[f.NodeID]; ok {
			return Error.New("duplicate node id %d", f.NodeID)
		}
		if _, ok := rows[f.RowID]; ok {
			return Error.New("duplicate row id %d", f.RowID)
		}
		nodes[f.NodeID] = struct{}{}
		rows[f.RowID] = struct{}{}
	}
	return nil
}

// NodeIDs returns the node ids of features in order.
func NodeIDs(features []Feature) []int {
	ids := make([]int, len(features))
	for i, f := range features {
		ids[i] = f.NodeID
	}
	return ids
}
