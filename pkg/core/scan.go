package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// DataPoint is a single m/z, intensity pair of a scan.
type DataPoint struct {
	MZ        float64
	Intensity float64
}

// Scan is one acquisition time point of a raw data file.
type Scan struct {
	Number        int
	RetentionTime float64
	Points        []DataPoint
}

// RawFile gives read-only access to the scans of one acquisition.
type RawFile interface {
	// ScanTimes returns the retention time of every scan in acquisition order.
	ScanTimes() []float64
	// ScanDataPoints returns the data points of the scan at index i.
	ScanDataPoints(i int) []DataPoint
}

// ScanList is an in-memory RawFile.
type ScanList []Scan

// ScanTimes implements RawFile.
func (s ScanList) ScanTimes() []float64 {
	times := make([]float64, len(s))
	for i, scan := range s {
		times[i] = scan.RetentionTime
	}
	return times
}

// ScanDataPoints implements RawFile.
func (s ScanList) ScanDataPoints(i int) []DataPoint {
	if i < 0 || i >= len(s) {
		return nil
	}
	return s[i].Points
}

// Validate checks that scans are ordered by retention time and carry finite values.
func (s ScanList) Validate() error {
	var problems []string

	for i, scan := range s {
		if math.IsNaN(scan.RetentionTime) || math.IsInf(scan.RetentionTime, 0) {
			problems = append(problems, fmt.Sprintf("scan %d has invalid retention time", i))
		}
		if i > 0 && scan.RetentionTime < s[i-1].RetentionTime {
			problems = append(problems, fmt.Sprintf("scan %d is out of retention time order", i))
		}
		for j, p := range scan.Points {
			if math.IsNaN(p.MZ) || math.IsInf(p.MZ, 0) || math.IsNaN(p.Intensity) || math.IsInf(p.Intensity, 0) {
				problems = append(problems, fmt.Sprintf("scan %d point %d is not finite", i, j))
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{
			Field:   "ScanList",
			Message: strings.Join(problems, "; "),
		}
	}
	return nil
}

// SortByRetentionTime sorts scans by retention time, keeping acquisition order for ties.
func (s ScanList) SortByRetentionTime() {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].RetentionTime < s[j].RetentionTime
	})
}

// RemoveZeroIntensityPoints removes data points with zero or negative intensity.
func (s ScanList) RemoveZeroIntensityPoints() {
	for i := range s {
		var kept []DataPoint
		for _, p := range s[i].Points {
			if p.Intensity > 0 {
				kept = append(kept, p)
			}
		}
		s[i].Points = kept
	}
}
