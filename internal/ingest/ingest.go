// Package ingest flattens spreadsheets into the plain text the oracle reads.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupported is returned for file types that cannot be flattened.
var ErrUnsupported = errors.New("unsupported spreadsheet type")

// Sheet is one named grid of cell values.
type Sheet struct {
	Name string
	Rows [][]string
}

// Supported reports whether filename has an extension Flatten understands.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".csv":
		return true
	}
	return false
}

// Read parses r according to the extension of filename.
func Read(filename string, r io.Reader) ([]Sheet, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return readWorkbook(r)
	case ".csv":
		return readCSV(r)
	}
	return nil, fmt.Errorf("%w: %q (use .xlsx or .csv)", ErrUnsupported, filepath.Ext(filename))
}

// Flatten reads a spreadsheet and renders it as text. Each non-empty sheet
// becomes a "Sheet: <name>" header followed by one line per row with cells
// joined by ", ", and sheets are separated by a blank line.
func Flatten(filename string, r io.Reader) (string, error) {
	sheets, err := Read(filename, r)
	if err != nil {
		return "", err
	}
	return Render(sheets), nil
}

func Render(sheets []Sheet) string {
	var sb strings.Builder
	for _, s := range sheets {
		if len(s.Rows) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "Sheet: %s\n", s.Name)
		for _, row := range s.Rows {
			sb.WriteString(strings.Join(row, ", "))
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	return strings.TrimSpace(sb.String())
}

func readWorkbook(r io.Reader) ([]Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not parse the Excel file; ensure it is a valid .xlsx or .csv file: %w", err)
	}
	defer f.Close()
	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", name, err)
		}
		sheets = append(sheets, Sheet{Name: name, Rows: dropBlankRows(rows)})
	}
	return sheets, nil
}

func readCSV(r io.Reader) ([]Sheet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("could not parse the CSV file: %w", err)
	}
	return []Sheet{{Name: "Sheet1", Rows: dropBlankRows(rows)}}, nil
}

func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0]
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}
