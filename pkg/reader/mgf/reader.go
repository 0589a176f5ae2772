// Package mgf provides streaming readers for scans stored in Mascot Generic Format
package mgf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/CliqueKey/pkg/core"
)

// Reader provides streaming access to MGF files
type Reader struct {
	scanner     *bufio.Scanner
	lineNum     int
	scanCount   int
	currentScan *core.Scan
	err         error
}

// NewReader creates a new MGF reader
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Reader{scanner: scanner}
}

// Next advances to the next scan. Returns false when no more scans or error.
func (r *Reader) Next() bool {
	r.currentScan = nil

	scan, err := r.readScan()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.currentScan = scan
	return true
}

// Scan returns the current scan
func (r *Reader) Scan() *core.Scan {
	return r.currentScan
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// readScan reads a single BEGIN IONS ... END IONS block
func (r *Reader) readScan() (*core.Scan, error) {
	var scan *core.Scan
	hasRT := false

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		// Skip blank lines and comments between entries
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if scan == nil {
			if line != "BEGIN IONS" {
				// Global parameters (CHARGE=, MASS=) precede the first block
				if strings.Contains(line, "=") {
					continue
				}
				return nil, fmt.Errorf("line %d: expected BEGIN IONS, got %q", r.lineNum, line)
			}
			r.scanCount++
			scan = &core.Scan{Number: r.scanCount}
			continue
		}

		if line == "END IONS" {
			if !hasRT {
				return nil, fmt.Errorf("line %d: scan %d has no retention time", r.lineNum, scan.Number)
			}
			return scan, nil
		}

		if key, value, ok := strings.Cut(line, "="); ok {
			if err := r.parseHeader(scan, key, value, &hasRT); err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
			}
			continue
		}

		point, err := parsePoint(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		scan.Points = append(scan.Points, point)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	if scan != nil {
		return nil, fmt.Errorf("line %d: unterminated scan %d", r.lineNum, scan.Number)
	}

	return nil, io.EOF
}

// parseHeader handles KEY=value lines inside a block
func (r *Reader) parseHeader(scan *core.Scan, key, value string, hasRT *bool) error {
	switch strings.ToUpper(strings.TrimSpace(key)) {
	case "RTINSECONDS":
		rt, err := parseRT(value)
		if err != nil {
			return err
		}
		scan.RetentionTime = rt
		*hasRT = true

	case "RTINMINUTES":
		rt, err := parseRT(value)
		if err != nil {
			return err
		}
		scan.RetentionTime = rt * 60.0
		*hasRT = true

	case "SCANS":
		// SCANS may be a range ("12-14"); keep the first number
		first, _, _ := strings.Cut(strings.TrimSpace(value), "-")
		if n, err := strconv.Atoi(first); err == nil {
			scan.Number = n
		}
	}
	return nil
}

// parseRT parses a retention time, taking the first value of a range
func parseRT(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if rt, err := strconv.ParseFloat(value, 64); err == nil {
		return rt, nil
	}

	first := value
	for i := 1; i < len(value); i++ {
		// An exponent sign is not a range separator
		if value[i] == '-' && value[i-1] != 'e' && value[i-1] != 'E' {
			first = value[:i]
			break
		}
	}
	rt, err := strconv.ParseFloat(strings.TrimSpace(first), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid retention time %q: %w", value, err)
	}
	return rt, nil
}

// parsePoint parses a single data point line (format: "mz intensity [charge]")
func parsePoint(line string) (core.DataPoint, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return core.DataPoint{}, fmt.Errorf("invalid data point format, expected at least 2 fields")
	}

	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return core.DataPoint{}, fmt.Errorf("invalid m/z value: %w", err)
	}

	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return core.DataPoint{}, fmt.Errorf("invalid intensity value: %w", err)
	}

	return core.DataPoint{MZ: mz, Intensity: intensity}, nil
}

// ReadAll reads every scan and returns them ordered by retention time
func ReadAll(r io.Reader) (core.ScanList, error) {
	reader := NewReader(r)

	var scans core.ScanList
	for reader.Next() {
		scans = append(scans, *reader.Scan())
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}

	scans.SortByRetentionTime()
	if err := scans.Validate(); err != nil {
		return nil, err
	}
	return scans, nil
}
