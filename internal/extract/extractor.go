// Package extract reads uploaded spreadsheets into tables and turns a table column into a reference set.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/urlmatch/internal/models"
)

// ErrUnknownColumn is returned when the requested column is not in the table header.
var ErrUnknownColumn = errors.New("unknown column")

// ErrTableTooLarge is returned when a sheet would expand past the table limits.
var ErrTableTooLarge = errors.New("table too large")

// Limits on what one sheet may expand into. Rows and columns match the
// largest xlsx worksheet.
const (
	maxTableRows    = 1 << 20
	maxTableColumns = 1 << 14
	maxTableCells   = 1 << 22
)

// SupportedExtensions lists the upload formats, leading dot included.
var SupportedExtensions = []string{".xlsx", ".xlsm", ".xls", ".ods", ".csv"}

// ParseError reports a file that could not be read as a spreadsheet.
// Err carries the underlying reader diagnostic.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot read %s file: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Extractor reads spreadsheet files into tables.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns the table of its first sheet.
// The format is chosen by the file extension.
func (e *Extractor) Extract(path string) (*models.Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes parses content according to ext (with leading dot, e.g. ".xlsx").
// The first row of the first sheet is the header. Any failure is a *ParseError
// and no partial table is returned.
func (e *Extractor) ExtractBytes(content []byte, ext string) (*models.Table, error) {
	ext = strings.ToLower(ext)
	var (
		sheet string
		rows  [][]string
		err   error
	)
	switch ext {
	case ".xls":
		// Excel 97-2003 files are compound documents; an .xls that is really
		// OOXML goes to excelize like any .xlsx.
		if isOLE2(content) {
			sheet, rows, err = readXLS(content)
		} else {
			sheet, rows, err = readExcel(content)
		}
	case ".xlsx", ".xlsm":
		sheet, rows, err = readExcel(content)
	case ".ods":
		sheet, rows, err = readODS(content)
	case ".csv":
		rows, err = readCSV(content)
	default:
		err = fmt.Errorf("unsupported format %q", ext)
	}
	if err != nil {
		return nil, &ParseError{Format: formatName(ext), Err: err}
	}
	if len(rows) == 0 {
		return nil, &ParseError{Format: formatName(ext), Err: errors.New("no header row")}
	}
	return newTable(sheet, rows), nil
}

// SelectColumn resolves the column to read. An empty name selects the first column.
func SelectColumn(table *models.Table, column string) (string, error) {
	if len(table.Columns) == 0 {
		return "", fmt.Errorf("%w: table has no columns", ErrUnknownColumn)
	}
	if column == "" {
		return table.Columns[0], nil
	}
	if table.ColumnIndex(column) < 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	return column, nil
}

// ReferenceSet returns the trimmed, non-empty values of column in row order.
func ReferenceSet(table *models.Table, column string) (models.ReferenceSet, error) {
	name, err := SelectColumn(table, column)
	if err != nil {
		return nil, err
	}
	return table.Column(table.ColumnIndex(name)), nil
}

// newTable splits off the header row and names the columns.
func newTable(sheet string, rows [][]string) *models.Table {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	return &models.Table{
		Sheet:   sheet,
		Columns: headerNames(rows[0], width),
		Rows:    rows[1:],
	}
}

// headerNames names blank header cells "Unnamed: <i>" and suffixes repeats with ".1", ".2", ...
func headerNames(header []string, width int) []string {
	names := make([]string, width)
	used := make(map[string]bool, width)
	suffix := make(map[string]int)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if used[name] {
			base := name
			for used[name] {
				suffix[base]++
				name = fmt.Sprintf("%s.%d", base, suffix[base])
			}
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func formatName(ext string) string {
	if ext == "" {
		return "file"
	}
	return strings.TrimPrefix(ext, ".")
}
