// Package tabular reads uploaded CSV and Excel sheets into header-keyed rows.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Format identifies a supported file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format, expected .csv or .xlsx")
	ErrEmptyTable        = errors.New("table has no header row")
	ErrMissingColumn     = errors.New("missing required column")
)

// Row is one data line of a table keyed by normalised header.
type Row struct {
	Line   int
	Values map[string]string
}

// Get returns the trimmed value of a column, or "" when absent.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r.Values[column])
}

// Table is a parsed sheet.
type Table struct {
	Headers []string
	Rows    []Row
}

// Has reports whether the table has a column.
func (t *Table) Has(column string) bool {
	for _, h := range t.Headers {
		if h == column {
			return true
		}
	}
	return false
}

// Require returns ErrMissingColumn naming the first absent column.
func (t *Table) Require(columns ...string) error {
	for _, c := range columns {
		if !t.Has(c) {
			return fmt.Errorf("%w %q", ErrMissingColumn, c)
		}
	}
	return nil
}

// FormatFromName picks the reader from a file extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// Read parses a CSV or Excel file. headerRow is 1-based; rows above it are
// ignored. Header names are trimmed and title-cased.
func Read(name string, r io.Reader, headerRow int) (*Table, error) {
	format, err := FormatFromName(name)
	if err != nil {
		return nil, err
	}
	var records [][]string
	switch format {
	case FormatXLSX:
		records, err = readXLSX(r)
	default:
		records, err = readCSV(r)
	}
	if err != nil {
		return nil, err
	}
	return FromRecords(records, headerRow)
}

// FromRecords builds a table from raw records.
func FromRecords(records [][]string, headerRow int) (*Table, error) {
	if headerRow < 1 {
		headerRow = 1
	}
	if len(records) < headerRow {
		return nil, ErrEmptyTable
	}

	raw := records[headerRow-1]
	headers := make([]string, len(raw))
	seen := make(map[string]struct{}, len(raw))
	table := &Table{}
	for i, h := range raw {
		name := NormalizeHeader(h)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		headers[i] = name
		table.Headers = append(table.Headers, name)
	}
	if len(table.Headers) == 0 {
		return nil, ErrEmptyTable
	}

	for i, rec := range records[headerRow:] {
		values := make(map[string]string, len(table.Headers))
		blank := true
		for j, cell := range rec {
			if j >= len(headers) || headers[j] == "" {
				continue
			}
			values[headers[j]] = cell
			if strings.TrimSpace(cell) != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		table.Rows = append(table.Rows, Row{Line: headerRow + i + 1, Values: values})
	}
	return table, nil
}

var headerSpace = regexp.MustCompile(`\s+`)

// NormalizeHeader trims, collapses whitespace and title-cases a column name.
func NormalizeHeader(h string) string {
	h = headerSpace.ReplaceAllString(strings.TrimSpace(h), " ")
	if h == "" {
		return ""
	}
	return cases.Title(language.Und).String(h)
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close() //nolint:errcheck

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyTable
	}
	// Raw values keep dates as serial numbers so they are not reformatted month-first.
	rows, err := wb.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}
