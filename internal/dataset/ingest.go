package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/rssi-distance/internal/fsutil"
)

// ReadCSV parses one measurement log. The first record is the header.
// Columns named in drop are skipped before numeric parsing, so text columns
// such as ADDRESS or UUID never need to be numeric.
func ReadCSV(r io.Reader, source string, drop []string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SchemaError{Source: source, Reason: "empty file"}
		}
		return nil, fmt.Errorf("reading header of %s: %w", source, err)
	}

	dropSet := make(map[string]bool, len(drop))
	for _, d := range drop {
		dropSet[d] = true
	}

	var keep []int
	var cols []string
	for i, h := range header {
		name := strings.TrimSpace(h)
		if dropSet[name] {
			continue
		}
		if indexOf(cols, name) >= 0 {
			return nil, &SchemaError{Source: source, Column: name, Reason: "duplicate column"}
		}
		keep = append(keep, i)
		cols = append(cols, name)
	}

	t := NewTable(source, cols...)
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", source, err)
		}
		row := make([]float64, len(keep))
		for j, k := range keep {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[k]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d column %q: %w", source, line, cols[j], err)
			}
			row[j] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// LoadGlob reads every file matching pattern with ReadCSV.
func LoadGlob(fsys fsutil.FileSystem, pattern string, drop []string) ([]*Table, error) {
	paths, err := fsys.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("expanding %q: %w", pattern, err)
	}
	tables := make([]*Table, 0, len(paths))
	for _, p := range paths {
		t, err := loadFile(fsys, p, drop)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func loadFile(fsys fsutil.FileSystem, path string, drop []string) (*Table, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f, path, drop)
}
