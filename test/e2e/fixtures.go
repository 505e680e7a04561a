package e2e

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"html"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SupportedFileExtensions are the upload formats the e2e tests generate.
// .xlsm shares the .xlsx path. Nothing here writes BIFF, so .xls uploads are
// covered by the extract package fixture tests.
var SupportedFileExtensions = []string{".xlsx", ".csv", ".ods"}

// WriteTable returns the bytes of a file of type ext holding header and rows.
func WriteTable(ext string, header []string, rows [][]string) ([]byte, error) {
	switch ext {
	case ".xlsx":
		return tableXlsx(header, rows)
	case ".csv":
		return tableCSV(header, rows)
	case ".ods":
		return tableOds(header, rows)
	default:
		return nil, fmt.Errorf("unsupported fixture type %q", ext)
	}
}

func tableXlsx(header []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sw, err := f.NewStreamWriter("Sheet1")
	if err != nil {
		return nil, err
	}
	for i, r := range append([][]string{header}, rows...) {
		cells := make([]interface{}, len(r))
		for j, v := range r {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return nil, err
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func tableCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func tableOds(header []string, rows [][]string) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"` +
		` xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0"` +
		` xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0">` +
		`<office:body><office:spreadsheet><table:table table:name="Sheet1">`)
	for _, r := range append([][]string{header}, rows...) {
		sb.WriteString("<table:table-row>")
		for _, v := range r {
			sb.WriteString("<table:table-cell><text:p>" + html.EscapeString(v) + "</text:p></table:table-cell>")
		}
		sb.WriteString("</table:table-row>")
	}
	sb.WriteString(`</table:table></office:spreadsheet></office:body></office:document-content>`)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("content.xml")
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write([]byte(sb.String())); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
