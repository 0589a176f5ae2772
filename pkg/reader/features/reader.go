// Package features reads feature tables exported by peak detection.
package features

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/CliqueKey/pkg/core"
)

// Column names accepted in the header line, with their aliases.
var columns = map[string][]string{
	"id":        {"id", "row id", "row_id", "rowid"},
	"mz":        {"mz", "row m/z", "m/z"},
	"mzmin":     {"mzmin", "mz_min"},
	"mzmax":     {"mzmax", "mz_max"},
	"rt":        {"rt", "row retention time", "retention time"},
	"rtmin":     {"rtmin", "rt_min"},
	"rtmax":     {"rtmax", "rt_max"},
	"intensity": {"intensity", "height"},
}

// Read parses a comma- or tab-separated feature table with a header line.
// Node ids are numbered by row position starting at 1.
func Read(r io.Reader, comma rune) ([]core.Feature, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	index, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var rows []core.Feature
	seen := make(map[int]int)
	lineNum := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		f, err := parseRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if prev, ok := seen[f.RowID]; ok {
			return nil, fmt.Errorf("line %d: row id %d already used on line %d", lineNum, f.RowID, prev)
		}
		seen[f.RowID] = lineNum
		rows = append(rows, f)
	}

	return core.NewFeatures(rows), nil
}

// mapHeader resolves every required column to its position.
func mapHeader(header []string) (map[string]int, error) {
	index := make(map[string]int, len(columns))
	for pos, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		for col, aliases := range columns {
			for _, alias := range aliases {
				if name == alias {
					index[col] = pos
				}
			}
		}
	}

	var missing []string
	for _, col := range []string{"id", "mz", "mzmin", "mzmax", "rt", "rtmin", "rtmax", "intensity"} {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("feature table is missing columns: %s", strings.Join(missing, ", "))
	}
	return index, nil
}

func parseRecord(record []string, index map[string]int) (core.Feature, error) {
	field := func(col string) (float64, error) {
		raw := strings.TrimSpace(record[index[col]])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value '%s': %w", col, raw, err)
		}
		return v, nil
	}

	for col, pos := range index {
		if pos >= len(record) {
			return core.Feature{}, fmt.Errorf("missing %s field", col)
		}
	}

	idStr := strings.TrimSpace(record[index["id"]])
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return core.Feature{}, fmt.Errorf("invalid row id '%s': %w", idStr, err)
	}

	f := core.Feature{RowID: id}
	targets := []struct {
		col string
		dst *float64
	}{
		{"mz", &f.MZ}, {"mzmin", &f.MZMin}, {"mzmax", &f.MZMax},
		{"rt", &f.RT}, {"rtmin", &f.RTMin}, {"rtmax", &f.RTMax},
		{"intensity", &f.Intensity},
	}
	for _, t := range targets {
		if *t.dst, err = field(t.col); err != nil {
			return core.Feature{}, err
		}
	}

	return f, nil
}
