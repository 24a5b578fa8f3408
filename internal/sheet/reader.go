// Package sheet reads the operator spreadsheet into rows that tolerate the
// file's quirks: duplicated column names, legacy header aliases and blank
// cells. The first parsed row is always treated as the header row.
package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row maps a header name to every cell that appeared under that name, in
// column order. Duplicate headers are common in the source file.
type Row struct {
	Index int // 1-based position in the sheet, headers excluded
	cells map[string][]string
}

// Get returns the first non-blank occurrence of a possibly duplicated column.
func (r Row) Get(column string) string {
	for _, v := range r.cells[column] {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Resolve returns the value of the first alias, in the given priority order,
// whose resolved value is non-blank.
func (r Row) Resolve(aliases ...string) string {
	for _, alias := range aliases {
		if v := r.Get(alias); v != "" {
			return v
		}
	}
	return ""
}

// Read loads a source file, dispatching on extension (.xlsx or .csv).
func Read(path string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path)
	case ".csv":
		return readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported source file %q (want .xlsx or .csv)", filepath.Base(path))
	}
}

func readXLSX(path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	return buildRows(records)
}

func readCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	// Sniff the delimiter from the first line; exports come both ways.
	head := make([]byte, 4096)
	n, _ := f.Read(head)
	delimiter := ','
	if strings.Count(string(head[:n]), ";") > strings.Count(string(head[:n]), ",") {
		delimiter = ';'
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	reader := csv.NewReader(f)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	return buildRows(records)
}

func buildRows(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("source file is empty")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	var rows []Row
	for i, record := range records[1:] {
		cells := make(map[string][]string, len(headers))
		blank := true
		for col, header := range headers {
			if header == "" {
				continue
			}
			v := ""
			if col < len(record) {
				v = record[col]
			}
			if strings.TrimSpace(v) != "" {
				blank = false
			}
			cells[header] = append(cells[header], v)
		}
		if blank {
			continue
		}
		rows = append(rows, Row{Index: i + 1, cells: cells})
	}
	return rows, nil
}

// NewRow builds a Row from parallel header/value slices. Tests and the
// converter's callers use it to assemble rows without going through a file.
func NewRow(index int, headers, values []string) Row {
	cells := make(map[string][]string, len(headers))
	for i, h := range headers {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		cells[strings.TrimSpace(h)] = append(cells[strings.TrimSpace(h)], v)
	}
	return Row{Index: index, cells: cells}
}
