package mgf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/CliqueKey/pkg/core"
)

const sampleMGF = `CHARGE=1+
# exported scans

BEGIN IONS
TITLE=scan two
SCANS=2
RTINSECONDS=1.5
100.05 20.0
200.1 5
END IONS

BEGIN IONS
TITLE=scan one
RTINMINUTES=0.01
100.05	10.0	1+
END IONS
`

func TestReaderStreamsScans(t *testing.T) {
	r := NewReader(strings.NewReader(sampleMGF))

	require.True(t, r.Next())
	first := r.Scan()
	require.Equal(t, 2, first.Number)
	require.Equal(t, 1.5, first.RetentionTime)
	require.Equal(t, []core.DataPoint{{MZ: 100.05, Intensity: 20}, {MZ: 200.1, Intensity: 5}}, first.Points)

	require.True(t, r.Next())
	second := r.Scan()
	require.Equal(t, 2, second.Number)
	require.InDelta(t, 0.6, second.RetentionTime, 1e-12)
	require.Len(t, second.Points, 1)

	require.False(t, r.Next())
	require.NoError(t, r.Err())
}

func TestReadAllSortsByRetentionTime(t *testing.T) {
	scans, err := ReadAll(strings.NewReader(sampleMGF))
	require.NoError(t, err)
	require.Len(t, scans, 2)
	require.InDelta(t, 0.6, scans[0].RetentionTime, 1e-12)
	require.Equal(t, 1.5, scans[1].RetentionTime)
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing retention time", "BEGIN IONS\n100 1\nEND IONS\n"},
		{"bad data point", "BEGIN IONS\nRTINSECONDS=1\n100 abc\nEND IONS\n"},
		{"unterminated", "BEGIN IONS\nRTINSECONDS=1\n100 1\n"},
		{"junk before block", "hello\n"},
		{"bad retention time", "BEGIN IONS\nRTINSECONDS=x\nEND IONS\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadAll(strings.NewReader(tt.input))
			require.Error(t, err)
		})
	}
}

func TestParseRT(t *testing.T) {
	tests := []struct {
		value string
		want  float64
	}{
		{"12.5", 12.5},
		{" 12.5 ", 12.5},
		{"1.5e-3", 0.0015},
		{"2E-1", 0.2},
		{"12.5-14.0", 12.5},
		{"1.5e-3-2.5e-3", 0.0015},
		{"-0.5", -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseRT(tt.value)
			require.NoError(t, err)
			require.InDelta(t, tt.want, got, 1e-15)
		})
	}
}

func TestReaderEmptyInput(t *testing.T) {
	scans, err := ReadAll(strings.NewReader("\n\n"))
	require.NoError(t, err)
	require.Empty(t, scans)
}
