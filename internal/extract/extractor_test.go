package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/urlmatch/internal/models"
)

func excelFixture(t *testing.T, cells map[string]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for axis, v := range cells {
		if err := f.SetCellValue("Sheet1", axis, v); err != nil {
			t.Fatalf("SetCellValue(%s): %v", axis, err)
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	return buf.Bytes()
}

func TestExtractBytes_excel(t *testing.T) {
	content := excelFixture(t, map[string]interface{}{
		"A1": "URL", "B1": "Hits",
		"A2": "https://a.com", "B2": 42,
		"A3": "https://b.com",
		"B4": 7,
	})

	table, err := NewExtractor().ExtractBytes(content, ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if table.Sheet != "Sheet1" {
		t.Errorf("sheet = %q", table.Sheet)
	}
	if !reflect.DeepEqual(table.Columns, []string{"URL", "Hits"}) {
		t.Errorf("columns = %q", table.Columns)
	}
	refs, err := ReferenceSet(table, "Hits")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(refs, models.ReferenceSet{"42", "7"}) {
		t.Errorf("Hits = %q, numbers should be coerced to text", refs)
	}
	refs, err = ReferenceSet(table, "")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(refs, models.ReferenceSet{"https://a.com", "https://b.com"}) {
		t.Errorf("default column = %q", refs)
	}
}

func TestExtractBytes_excelFirstSheetOnly(t *testing.T) {
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "First")
	if _, err := f.NewSheet("Other"); err != nil {
		t.Fatal(err)
	}
	f.SetCellValue("Other", "A1", "Second")
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	table, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(table.Columns, []string{"First"}) {
		t.Errorf("columns = %q", table.Columns)
	}
}

func TestExtractBytes_corrupt(t *testing.T) {
	_, err := NewExtractor().ExtractBytes([]byte("definitely not a workbook"), ".xlsx")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if perr.Format != "xlsx" || perr.Err == nil {
		t.Errorf("ParseError = %+v", perr)
	}
}

func TestExtractBytes_unsupported(t *testing.T) {
	_, err := NewExtractor().ExtractBytes([]byte("x"), ".pdf")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

func TestExtractBytes_noHeaderRow(t *testing.T) {
	f := excelize.NewFile()
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	_, err = NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError for empty sheet, got %v", err)
	}
}

func TestExtractBytes_csv(t *testing.T) {
	content := []byte("\xEF\xBB\xBFurl,,url\nhttps://a.com,x,https://c.com\n  ,y\n\"https://b.com\"\n")
	table, err := NewExtractor().ExtractBytes(content, ".CSV")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if !reflect.DeepEqual(table.Columns, []string{"url", "Unnamed: 1", "url.1"}) {
		t.Errorf("columns = %q", table.Columns)
	}
	refs, err := ReferenceSet(table, "url")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(refs, models.ReferenceSet{"https://a.com", "https://b.com"}) {
		t.Errorf("url = %q", refs)
	}
}

const odsContentFixture = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content
  xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0"
  xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0">
<office:body><office:spreadsheet>
<table:table table:name="Links">
<table:table-row><table:table-cell><text:p>URL</text:p></table:table-cell><table:table-cell table:number-columns-repeated="2"/><table:table-cell><text:p>Note</text:p></table:table-cell></table:table-row>
<table:table-row><table:table-cell office:value-type="string"><text:p>https://a.com/<text:span>x</text:span></text:p><office:annotation><text:p>hidden</text:p></office:annotation></table:table-cell></table:table-row>
<table:table-row table:number-rows-repeated="3"><table:table-cell table:number-columns-repeated="1024"/></table:table-row>
<table:table-row><table:table-cell office:value-type="float" office:value="5"><text:p>5</text:p></table:table-cell></table:table-row>
<table:table-row table:number-rows-repeated="1048570"><table:table-cell table:number-columns-repeated="1024"/></table:table-row>
</table:table>
<table:table table:name="Ignored"><table:table-row><table:table-cell><text:p>nope</text:p></table:table-cell></table:table-row></table:table>
</office:spreadsheet></office:body>
</office:document-content>`

func odsFixture(t *testing.T, contentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("content.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(contentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractBytes_ods(t *testing.T) {
	table, err := NewExtractor().ExtractBytes(odsFixture(t, odsContentFixture), ".ods")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if table.Sheet != "Links" {
		t.Errorf("sheet = %q", table.Sheet)
	}
	if !reflect.DeepEqual(table.Columns, []string{"URL", "Unnamed: 1", "Unnamed: 2", "Note"}) {
		t.Errorf("columns = %q", table.Columns)
	}
	if len(table.Rows) != 5 {
		t.Errorf("rows = %d, want 5 (trailing padding dropped)", len(table.Rows))
	}
	refs, err := ReferenceSet(table, "URL")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(refs, models.ReferenceSet{"https://a.com/x", "5"}) {
		t.Errorf("URL = %q", refs)
	}
}

func odsDocument(rows string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content
  xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0"
  xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0">
<office:body><office:spreadsheet><table:table table:name="T">` + rows + `</table:table></office:spreadsheet></office:body>
</office:document-content>`
}

func TestExtractBytes_odsTooLarge(t *testing.T) {
	const header = `<table:table-row><table:table-cell><text:p>URL</text:p></table:table-cell></table:table-row>`
	tests := []struct {
		name string
		rows string
	}{
		{
			name: "empty rows repeated before content",
			rows: header +
				`<table:table-row table:number-rows-repeated="5000000"><table:table-cell/></table:table-row>` +
				`<table:table-row><table:table-cell><text:p>x</text:p></table:table-cell></table:table-row>`,
		},
		{
			name: "empty cells repeated before content",
			rows: `<table:table-row><table:table-cell table:number-columns-repeated="5000000"/><table:table-cell><text:p>x</text:p></table:table-cell></table:table-row>`,
		},
		{
			name: "empty rows and cells repeated past int range",
			rows: `<table:table-row table:number-rows-repeated="9223372036854775807"><table:table-cell table:number-columns-repeated="9223372036854775807"/></table:table-row>` +
				`<table:table-row table:number-rows-repeated="9223372036854775807"><table:table-cell/></table:table-row>` +
				`<table:table-row><table:table-cell table:number-columns-repeated="9223372036854775807"/><table:table-cell><text:p>x</text:p></table:table-cell></table:table-row>`,
		},
		{
			name: "value repeated across too many columns",
			rows: `<table:table-row><table:table-cell table:number-columns-repeated="20000"><text:p>x</text:p></table:table-cell></table:table-row>`,
		},
		{
			name: "content row repeated past the cell budget",
			rows: header +
				`<table:table-row table:number-rows-repeated="5000"><table:table-cell table:number-columns-repeated="1000"><text:p>x</text:p></table:table-cell></table:table-row>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewExtractor().ExtractBytes(odsFixture(t, odsDocument(tt.rows)), ".ods")
			if table != nil {
				t.Errorf("expected no table, got %d rows", len(table.Rows))
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
			if !errors.Is(err, ErrTableTooLarge) {
				t.Errorf("expected ErrTableTooLarge, got %v", err)
			}
		})
	}
}

func TestExtractBytes_odsHugeTrailingPadding(t *testing.T) {
	rows := `<table:table-row><table:table-cell><text:p>URL</text:p></table:table-cell><table:table-cell table:number-columns-repeated="5000000"/></table:table-row>` +
		`<table:table-row><table:table-cell><text:p>https://a.com</text:p></table:table-cell></table:table-row>` +
		`<table:table-row table:number-rows-repeated="5000000"><table:table-cell table:number-columns-repeated="5000000"/></table:table-row>`
	table, err := NewExtractor().ExtractBytes(odsFixture(t, odsDocument(rows)), ".ods")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if !reflect.DeepEqual(table.Columns, []string{"URL"}) || len(table.Rows) != 1 {
		t.Errorf("table = %q / %d rows", table.Columns, len(table.Rows))
	}
}

func TestExtractBytes_odsSpaceRunBounded(t *testing.T) {
	rows := `<table:table-row><table:table-cell><text:p>URL</text:p></table:table-cell></table:table-row>` +
		`<table:table-row><table:table-cell><text:p>a<text:s text:c="999999999999"/>b</text:p></table:table-cell></table:table-row>`
	table, err := NewExtractor().ExtractBytes(odsFixture(t, odsDocument(rows)), ".ods")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got := len(table.Rows[0][0]); got != maxODSSpaces+2 {
		t.Errorf("cell length = %d, want %d", got, maxODSSpaces+2)
	}
}

func TestExtractBytes_odsNotZip(t *testing.T) {
	_, err := NewExtractor().ExtractBytes([]byte("plain"), ".ods")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

func TestReferenceSet_unknownColumn(t *testing.T) {
	table := &models.Table{Columns: []string{"URL"}}
	if _, err := ReferenceSet(table, "Missing"); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("error = %v, want ErrUnknownColumn", err)
	}
}

func TestHeaderNames(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		width  int
		want   []string
	}{
		{"plain", []string{"a", "b"}, 2, []string{"a", "b"}},
		{"blank and wider rows", []string{"", " a "}, 3, []string{"Unnamed: 0", "a", "Unnamed: 2"}},
		{"duplicates", []string{"a", "a", "a"}, 3, []string{"a", "a.1", "a.2"}},
		{"duplicate collides with existing suffix", []string{"a", "a.1", "a"}, 3, []string{"a", "a.1", "a.2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := headerNames(tt.header, tt.width); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("headerNames() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_excelFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.xlsx")
	if err := os.WriteFile(path, excelFixture(t, map[string]interface{}{"A1": "Links", "A2": "https://x.com"}), 0600); err != nil {
		t.Fatal(err)
	}
	table, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(table.Rows) != 1 || table.Rows[0][0] != "https://x.com" {
		t.Errorf("rows = %q", table.Rows)
	}
}

func TestExtract_nonexistent(t *testing.T) {
	if _, err := NewExtractor().Extract("/nonexistent/path/file.xlsx"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestProbe(t *testing.T) {
	if err := Probe(); err != nil {
		t.Fatalf("Probe: %v", err)
	}
}
