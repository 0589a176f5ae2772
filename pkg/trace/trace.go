// Package trace reconstructs extracted-ion chromatograms (EICs) for features
// on the shared scan time axis of a raw data file.
package trace

import (
	"math"
	"sort"

	"github.com/ChrisMcGann/CliqueKey/pkg/core"
)

// Trace is a dense intensity profile with one sample per scan. Zero means no signal.
type Trace []float64

// IsZero reports whether the trace carries no signal at all.
func (t Trace) IsZero() bool {
	for _, v := range t {
		if v != 0 {
			return false
		}
	}
	return true
}

// MatchMode selects how feature retention time bounds are located on the scan axis.
type MatchMode int

const (
	// MatchNearest takes the closest scan time within the builder tolerance.
	MatchNearest MatchMode = iota
	// MatchExact requires a scan time equal to the bound.
	MatchExact
)

func (m MatchMode) String() string {
	switch m {
	case MatchExact:
		return "exact"
	default:
		return "nearest"
	}
}

// Builder reconstructs traces. The zero value matches bounds to the nearest scan
// within half of the widest scan interval.
type Builder struct {
	Match MatchMode
	// Tolerance bounds the distance between a retention time bound and the
	// matched scan time for MatchNearest. Zero selects half of the widest scan interval.
	Tolerance float64
}

// Stats summarizes a Build call.
type Stats struct {
	Unmatched int // features whose rtmin or rtmax had no matching scan
	Empty     int // traces without any signal, unmatched ones included
}

// Build returns one trace per feature, in feature order. Every trace has one
// sample per scan of raw.
func (b *Builder) Build(raw core.RawFile, features []core.Feature) ([]Trace, Stats) {
	var stats Stats

	ax := newAxis(raw.ScanTimes(), b.Match, b.Tolerance)
	traces := make([]Trace, len(features))

	for i := range features {
		f := &features[i]
		tr := make(Trace, len(ax.times))
		traces[i] = tr

		lo := ax.index(f.RTMin)
		hi := ax.index(f.RTMax)
		if lo < 0 || hi < 0 {
			stats.Unmatched++
			stats.Empty++
			continue
		}

		// The scan matched for rtmax closes the window.
		for j := lo; j < hi; j++ {
			tr[j] = meanIntensity(raw.ScanDataPoints(j), f.MZMin, f.MZMax)
		}

		if tr.IsZero() {
			stats.Empty++
		}
	}

	return traces, stats
}

// meanIntensity averages the intensities of points with mzMin <= mz <= mzMax.
func meanIntensity(points []core.DataPoint, mzMin, mzMax float64) float64 {
	sum := 0.0
	n := 0
	for _, p := range points {
		if p.MZ >= mzMin && p.MZ <= mzMax {
			sum += p.Intensity
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// axis locates retention times on the scan time axis.
type axis struct {
	times     []float64
	sorted    bool
	match     MatchMode
	tolerance float64
}

func newAxis(times []float64, match MatchMode, tolerance float64) *axis {
	ax := &axis{
		times:     times,
		sorted:    sort.Float64sAreSorted(times),
		match:     match,
		tolerance: tolerance,
	}
	if match == MatchNearest && tolerance <= 0 {
		ax.tolerance = widestGap(times) / 2
	}
	return ax
}

// widestGap returns the largest interval between consecutive scan times.
func widestGap(times []float64) float64 {
	gap := 0.0
	for i := 1; i < len(times); i++ {
		if d := math.Abs(times[i] - times[i-1]); d > gap {
			gap = d
		}
	}
	return gap
}

// index returns the scan index matched for t, or -1.
func (ax *axis) index(t float64) int {
	if len(ax.times) == 0 || math.IsNaN(t) {
		return -1
	}
	if !ax.sorted {
		return ax.linearIndex(t)
	}

	i := sort.SearchFloat64s(ax.times, t)
	if ax.match == MatchExact {
		if i < len(ax.times) && ax.times[i] == t {
			return i
		}
		return -1
	}

	best := -1
	if i < len(ax.times) {
		best = i
	}
	if i > 0 && (best < 0 || t-ax.times[i-1] <= ax.times[best]-t) {
		best = i - 1
		// Prefer the first of repeated times.
		for best > 0 && ax.times[best-1] == ax.times[best] {
			best--
		}
	}
	if math.Abs(ax.times[best]-t) > ax.tolerance {
		return -1
	}
	return best
}

func (ax *axis) linearIndex(t float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i, st := range ax.times {
		d := math.Abs(st - t)
		if ax.match == MatchExact {
			if d == 0 {
				return i
			}
			continue
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 && bestDist > ax.tolerance {
		return -1
	}
	return best
}
