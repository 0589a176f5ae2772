package features

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	input := `row ID,row m/z,mzmin,mzmax,row retention time,rtmin,rtmax,height,extra
7,200.1,200.0,200.2,5.0,4.5,5.5,1000,x
# skipped comment
9, 300.2, 300.1, 300.3, 6.0, 5.5, 6.5, 250,y
`
	features, err := Read(strings.NewReader(input), ',')
	require.NoError(t, err)
	require.Len(t, features, 2)

	require.Equal(t, 1, features[0].NodeID)
	require.Equal(t, 7, features[0].RowID)
	require.Equal(t, 200.1, features[0].MZ)
	require.Equal(t, 5.5, features[0].RTMax)
	require.Equal(t, 1000.0, features[0].Intensity)

	require.Equal(t, 2, features[1].NodeID)
	require.Equal(t, 9, features[1].RowID)
	require.Equal(t, 300.3, features[1].MZMax)
	require.NoError(t, features[1].Validate())
}

func TestReadTSV(t *testing.T) {
	input := "id\tmz\tmzmin\tmzmax\trt\trtmin\trtmax\tintensity\n1\t100\t99\t101\t2\t1\t3\t10\n"
	features, err := Read(strings.NewReader(input), '\t')
	require.NoError(t, err)
	require.Len(t, features, 1)
	require.Equal(t, 99.0, features[0].MZMin)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing column", "id,mz,mzmin,mzmax,rt,rtmin,rtmax\n1,1,1,1,1,1,1\n"},
		{"bad number", "id,mz,mzmin,mzmax,rt,rtmin,rtmax,intensity\n1,abc,1,1,1,1,1,1\n"},
		{"bad id", "id,mz,mzmin,mzmax,rt,rtmin,rtmax,intensity\nx,1,1,1,1,1,1,1\n"},
		{"duplicate id", "id,mz,mzmin,mzmax,rt,rtmin,rtmax,intensity\n1,1,1,1,1,1,1,1\n1,1,1,1,1,1,1,1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input), ',')
			require.Error(t, err)
		})
	}
}

func TestReadEmpty(t *testing.T) {
	features, err := Read(strings.NewReader(""), ',')
	require.NoError(t, err)
	require.Empty(t, features)

	features, err = Read(strings.NewReader("id,mz,mzmin,mzmax,rt,rtmin,rtmax,intensity\n"), ',')
	require.NoError(t, err)
	require.Empty(t, features)
}
