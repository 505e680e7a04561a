package extract

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// readExcel returns the name and rows of the first sheet of an Excel workbook.
// Cell values come back as formatted text.
func readExcel(content []byte) (string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil, errors.New("workbook has no sheets")
	}
	rows, err := excelRows(f, sheets[0])
	if err != nil {
		return "", nil, err
	}
	return sheets[0], trimTrailingEmptyRows(rows), nil
}

// excelRows reads a sheet like GetRows but stops with ErrTableTooLarge once
// the sheet passes the table limits.
func excelRows(f *excelize.File, sheet string) ([][]string, error) {
	it, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
	}
	defer it.Close()

	var (
		rows  [][]string
		cells int
	)
	for it.Next() {
		if len(rows) == maxTableRows {
			return nil, fmt.Errorf("%w: more than %d rows", ErrTableTooLarge, maxTableRows)
		}
		row, err := it.Columns()
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		if len(row) > maxTableColumns {
			return nil, fmt.Errorf("%w: row is wider than %d columns", ErrTableTooLarge, maxTableColumns)
		}
		if cells += len(row); cells > maxTableCells {
			return nil, fmt.Errorf("%w: more than %d cells", ErrTableTooLarge, maxTableCells)
		}
		rows = append(rows, row)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func trimTrailingEmptyRows(rows [][]string) [][]string {
	for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
		rows = rows[:len(rows)-1]
	}
	return rows
}

// Probe writes a one-cell workbook in memory and reads it back, to check that
// spreadsheet support works before the server starts accepting uploads.
func Probe() error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	if err := f.SetCellValue(sheet, "A1", "probe"); err != nil {
		return fmt.Errorf("probe: set cell: %w", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("probe: write workbook: %w", err)
	}
	table, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	if len(table.Columns) != 1 || table.Columns[0] != "probe" {
		return fmt.Errorf("probe: unexpected header %q", table.Columns)
	}
	return nil
}
