package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrMissingColumn is returned when a required CSV column is absent.
var ErrMissingColumn = errors.New("missing column")

// CorpusColumns lists the columns a corpus file must provide.
var CorpusColumns = []string{
	KeyName, KeyURL, KeyDescription, KeyDuration, KeyTestType, KeyRemoteSupport, KeyAdaptiveSupport,
}

// Table is a parsed CSV file with a header row.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// ReadTable parses CSV data whose first row is a header. Header names are
// matched case-insensitively with surrounding whitespace and BOM removed.
func ReadTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("empty file")
	}

	t := &Table{
		Header: make([]string, len(rows[0])),
		Rows:   rows[1:],
		index:  make(map[string]int, len(rows[0])),
	}
	for i, cell := range rows[0] {
		name := cleanCell(strings.TrimPrefix(cell, "\ufeff"))
		t.Header[i] = name
		key := strings.ToLower(name)
		if _, exists := t.index[key]; !exists {
			t.index[key] = i
		}
	}
	return t, nil
}

// Require returns the column positions for names, or ErrMissingColumn.
func (t *Table) Require(names ...string) ([]int, error) {
	cols := make([]int, len(names))
	var missing []string
	for i, name := range names {
		idx, ok := t.index[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[i] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return cols, nil
}

// Cell returns the trimmed value at column col of row, or "" when the row
// is short.
func Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return cleanCell(row[col])
}

// LoadCorpus reads the assessment corpus from a CSV file. Assessment IDs
// are the zero-based row positions, matching the index built from the
// same file.
func LoadCorpus(path string) ([]Assessment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return ReadCorpus(f)
}

// ReadCorpus parses corpus rows from r.
func ReadCorpus(r io.Reader) ([]Assessment, error) {
	table, err := ReadTable(r)
	if err != nil {
		return nil, err
	}
	cols, err := table.Require(CorpusColumns...)
	if err != nil {
		return nil, err
	}

	out := make([]Assessment, 0, len(table.Rows))
	for i, row := range table.Rows {
		out = append(out, Assessment{
			ID:              strconv.Itoa(i),
			Name:            Cell(row, cols[0]),
			URL:             Cell(row, cols[1]),
			Description:     Cell(row, cols[2]),
			Duration:        Cell(row, cols[3]),
			TestType:        Cell(row, cols[4]),
			RemoteSupport:   Cell(row, cols[5]),
			AdaptiveSupport: Cell(row, cols[6]),
		})
	}
	return out, nil
}

func cleanCell(v string) string {
	return strings.TrimSpace(v)
}
