package evaluation

import (
	"fmt"
	"io"
	"os"

	"github.com/knoguchi/recommender/internal/catalog"
	"github.com/knoguchi/recommender/internal/slug"
)

// Dataset column names, matched case-insensitively.
const (
	ColumnQuery = "Query"
	ColumnURL   = "Assessment_url"
)

// Record is one ground-truth row.
type Record struct {
	// Row is the 1-based data row number in the source file.
	Row          int
	Query        string
	ExpectedURL  string
	ExpectedSlug string
}

// LoadDataset reads a ground-truth CSV from path.
func LoadDataset(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	records, err := ReadDataset(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return records, nil
}

// ReadDataset parses a ground-truth CSV with Query and Assessment_url
// columns. Rows missing either value are kept with empty fields so the
// harness can report them as skipped.
func ReadDataset(r io.Reader) ([]Record, error) {
	table, err := catalog.ReadTable(r)
	if err != nil {
		return nil, err
	}

	cols, err := table.Require(ColumnQuery, ColumnURL)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(table.Rows))
	for i, row := range table.Rows {
		url := catalog.Cell(row, cols[1])
		records = append(records, Record{
			Row:          i + 1,
			Query:        catalog.Cell(row, cols[0]),
			ExpectedURL:  url,
			ExpectedSlug: slug.Normalize(url),
		})
	}
	return records, nil
}
