package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// odsContentPath is the path to the main content inside an .ods zip (OpenDocument Spreadsheet).
const odsContentPath = "content.xml"

const (
	odsTableNS  = "urn:oasis:names:tc:opendocument:xmlns:table:1.0"
	odsTextNS   = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"
	odsOfficeNS = "urn:oasis:names:tc:opendocument:xmlns:office:1.0"
)

// maxODSContentBytes bounds the decompressed size of content.xml.
const maxODSContentBytes = 1 << 28

// maxODSSpaces bounds a single text:s run.
const maxODSSpaces = 1 << 16

// readODS returns the name and rows of the first table in an .ods file.
func readODS(content []byte) (string, [][]string, error) {
	contentXML, err := odsContent(content)
	if err != nil {
		return "", nil, err
	}
	return parseODSTable(contentXML)
}

func odsContent(content []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("not a zip: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != odsContentPath {
			continue
		}
		if f.UncompressedSize64 > maxODSContentBytes {
			return nil, fmt.Errorf("%w: %s is %d bytes", ErrTableTooLarge, f.Name, f.UncompressedSize64)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(io.LimitReader(rc, maxODSContentBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		if len(data) > maxODSContentBytes {
			return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTableTooLarge, f.Name, maxODSContentBytes)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s not found", odsContentPath)
}

// odsTableReader accumulates rows of one table:table element. Runs of empty
// cells and rows are held back and only written out when followed by content,
// so trailing padding (often repeated a million times) never materializes.
// Anything that would expand past the table limits fails with ErrTableTooLarge.
type odsTableReader struct {
	rows         [][]string
	row          []string
	pendingRows  int
	pendingCells int
	rowRepeat    int
	cells        int
}

func (r *odsTableReader) startRow(repeat int) {
	r.row = nil
	r.pendingCells = 0
	r.rowRepeat = repeat
}

func (r *odsTableReader) cell(value string, repeat int) error {
	if value == "" {
		r.pendingCells = min(r.pendingCells+repeat, maxTableColumns+1)
		return nil
	}
	if width := len(r.row) + r.pendingCells + repeat; width > maxTableColumns {
		return fmt.Errorf("%w: row is wider than %d columns", ErrTableTooLarge, maxTableColumns)
	}
	for ; r.pendingCells > 0; r.pendingCells-- {
		r.row = append(r.row, "")
	}
	for i := 0; i < repeat; i++ {
		r.row = append(r.row, value)
	}
	return nil
}

func (r *odsTableReader) endRow() error {
	if len(r.row) == 0 {
		r.pendingRows = min(r.pendingRows+r.rowRepeat, maxTableRows+1)
		return nil
	}
	if n := len(r.rows) + r.pendingRows + r.rowRepeat; n > maxTableRows {
		return fmt.Errorf("%w: more than %d rows", ErrTableTooLarge, maxTableRows)
	}
	r.cells += r.pendingRows + r.rowRepeat*len(r.row)
	if r.cells > maxTableCells {
		return fmt.Errorf("%w: more than %d cells", ErrTableTooLarge, maxTableCells)
	}
	for ; r.pendingRows > 0; r.pendingRows-- {
		r.rows = append(r.rows, []string{})
	}
	for i := 0; i < r.rowRepeat; i++ {
		r.rows = append(r.rows, append([]string(nil), r.row...))
	}
	return nil
}

func parseODSTable(data []byte) (string, [][]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		name        string
		inTable     bool
		inCell      bool
		inParagraph bool
		paragraphs  int
		cellRepeat  int
		text        strings.Builder
		table       odsTableReader
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("parse %s: %w", odsContentPath, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Space == odsTableNS && t.Name.Local == "table" && !inTable:
				inTable = true
				name = odsAttr(t, odsTableNS, "name")
			case !inTable:
			case t.Name.Space == odsOfficeNS && t.Name.Local == "annotation":
				if err := dec.Skip(); err != nil {
					return "", nil, fmt.Errorf("parse %s: %w", odsContentPath, err)
				}
			case t.Name.Space == odsTableNS && t.Name.Local == "table-row":
				table.startRow(odsRepeat(t, "number-rows-repeated"))
			case t.Name.Space == odsTableNS && (t.Name.Local == "table-cell" || t.Name.Local == "covered-table-cell"):
				inCell = true
				paragraphs = 0
				text.Reset()
				cellRepeat = odsRepeat(t, "number-columns-repeated")
			case inCell && t.Name.Space == odsTextNS:
				switch t.Name.Local {
				case "p":
					if paragraphs > 0 {
						text.WriteByte('\n')
					}
					paragraphs++
					inParagraph = true
				case "s":
					n, err := strconv.Atoi(odsAttr(t, odsTextNS, "c"))
					if err != nil || n < 1 {
						n = 1
					}
					n = min(n, maxODSSpaces)
					text.WriteString(strings.Repeat(" ", n))
				case "tab":
					text.WriteByte('\t')
				case "line-break":
					text.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inParagraph {
				text.Write(t)
			}
		case xml.EndElement:
			switch {
			case !inTable:
			case t.Name.Space == odsTextNS && t.Name.Local == "p":
				inParagraph = false
			case t.Name.Space == odsTableNS && (t.Name.Local == "table-cell" || t.Name.Local == "covered-table-cell"):
				inCell = false
				if err := table.cell(text.String(), cellRepeat); err != nil {
					return "", nil, err
				}
			case t.Name.Space == odsTableNS && t.Name.Local == "table-row":
				if err := table.endRow(); err != nil {
					return "", nil, err
				}
			case t.Name.Space == odsTableNS && t.Name.Local == "table":
				return name, table.rows, nil
			}
		}
	}
	return "", nil, errors.New("no table found")
}

func odsAttr(el xml.StartElement, space, local string) string {
	for _, a := range el.Attr {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// odsRepeat reads a repeat count, clamped just past the row limit so sums of
// counts cannot overflow.
func odsRepeat(el xml.StartElement, local string) int {
	n, err := strconv.Atoi(odsAttr(el, odsTableNS, local))
	if err != nil || n < 1 {
		return 1
	}
	return min(n, maxTableRows+1)
}
