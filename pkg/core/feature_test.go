package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func validFeature() Feature {
	return Feature{
		NodeID:    1,
		RowID:     10,
		MZ:        200.1,
		MZMin:     200.0,
		MZMax:     200.2,
		RT:        5.0,
		RTMin:     4.5,
		RTMax:     5.5,
		Intensity: 1000,
	}
}

func TestFeatureValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *Feature)
		wantErr bool
	}{
		{
			name:    "valid feature",
			mutate:  func(f *Feature) {},
			wantErr: false,
		},
		{
			name:    "zero node id",
			mutate:  func(f *Feature) { f.NodeID = 0 },
			wantErr: true,
		},
		{
			name:    "mz outside range",
			mutate:  func(f *Feature) { f.MZ = 201 },
			wantErr: true,
		},
		{
			name:    "rt outside range",
			mutate:  func(f *Feature) { f.RTMin = 5.1 },
			wantErr: true,
		},
		{
			name:    "negative intensity",
			mutate:  func(f *Feature) { f.Intensity = -1 },
			wantErr: true,
		},
		{
			name:    "NaN m/z",
			mutate:  func(f *Feature) { f.MZ = math.NaN() },
			wantErr: true,
		},
		{
			name:    "zero intensity",
			mutate:  func(f *Feature) { f.Intensity = 0 },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFeature()
			tt.mutate(&f)
			err := f.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidationErrorType(t *testing.T) {
	f := validFeature()
	f.Intensity = -5

	err := f.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "feature 10/1", verr.Field)
	require.Contains(t, verr.Message, "intensity")
}

func TestNewFeaturesNumbersNodes(t *testing.T) {
	rows := []Feature{validFeature(), validFeature(), validFeature()}
	rows[0].NodeID = 42

	features := NewFeatures(rows)
	require.Equal(t, []int{1, 2, 3}, NodeIDs(features))
	require.Equal(t, 42, rows[0].NodeID, "input rows must not be modified")
}

func TestValidateFeatures(t *testing.T) {
	second := validFeature()
	second.RowID = 11
	features := NewFeatures([]Feature{validFeature(), second})
	require.NoError(t, ValidateFeatures(features))

	features[1].NodeID = 1
	err := ValidateFeatures(features)
	require.Error(t, err)
	require.True(t, Error.Has(err))

	features[1].NodeID = 2
	features[1].MZMax = 100
	require.Error(t, ValidateFeatures(features))
}

func TestValidateFeaturesRejectsRepeatedRowIDs(t *testing.T) {
	rows := []Feature{validFeature(), validFeature(), validFeature()}
	for i := range rows {
		rows[i].RowID = 0
	}

	err := ValidateFeatures(NewFeatures(rows))
	require.Error(t, err)
	require.True(t, Error.Has(err))
	require.Contains(t, err.Error(), "duplicate row id 0")
}
