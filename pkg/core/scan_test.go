package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScanListRawFile(t *testing.T) {
	scans := ScanList{
		{Number: 1, RetentionTime: 1.0, Points: []DataPoint{{MZ: 100, Intensity: 10}}},
		{Number: 2, RetentionTime: 2.0},
	}

	require.Equal(t, []float64{1.0, 2.0}, scans.ScanTimes())
	require.Len(t, scans.ScanDataPoints(0), 1)
	require.Empty(t, scans.ScanDataPoints(1))
	require.Nil(t, scans.ScanDataPoints(5))
	require.Nil(t, scans.ScanDataPoints(-1))
}

func TestScanListValidation(t *testing.T) {
	tests := []struct {
		name    string
		scans   ScanList
		wantErr bool
	}{
		{
			name:    "ordered",
			scans:   ScanList{{RetentionTime: 1}, {RetentionTime: 1}, {RetentionTime: 2}},
			wantErr: false,
		},
		{
			name:    "out of order",
			scans:   ScanList{{RetentionTime: 2}, {RetentionTime: 1}},
			wantErr: true,
		},
		{
			name:    "NaN time",
			scans:   ScanList{{RetentionTime: math.NaN()}},
			wantErr: true,
		},
		{
			name:    "infinite intensity",
			scans:   ScanList{{RetentionTime: 1, Points: []DataPoint{{MZ: 100, Intensity: math.Inf(1)}}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scans.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSortByRetentionTime(t *testing.T) {
	scans := ScanList{
		{Number: 3, RetentionTime: 3},
		{Number: 1, RetentionTime: 1},
		{Number: 2, RetentionTime: 2},
	}
	scans.SortByRetentionTime()

	for i, scan := range scans {
		if scan.Number != i+1 {
			t.Errorf("Scan %d: expected number %d, got %d", i, i+1, scan.Number)
		}
	}
}

func TestRemoveZeroIntensityPoints(t *testing.T) {
	scans := ScanList{{
		RetentionTime: 1,
		Points: []DataPoint{
			{MZ: 100, Intensity: 0},
			{MZ: 101, Intensity: 5},
			{MZ: 102, Intensity: -1},
		},
	}}
	scans.RemoveZeroIntensityPoints()

	require.Equal(t, []DataPoint{{MZ: 101, Intensity: 5}}, scans[0].Points)
}
