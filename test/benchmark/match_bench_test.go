package benchmark

import (
	"fmt"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/urlmatch/internal/extract"
	"github.com/hyperjump/urlmatch/internal/matcher"
	"github.com/hyperjump/urlmatch/internal/models"
)

func references(n int) models.ReferenceSet {
	refs := make(models.ReferenceSet, n)
	for i := range refs {
		refs[i] = fmt.Sprintf("https://site%d.example.com/blog/post-%d?utm_source=newsletter", i%97, i)
	}
	return refs
}

func terms(n int) []string {
	ts := make([]string, n)
	for i := range ts {
		ts[i] = fmt.Sprintf("site%d.example.com/blog/post-%d", i, i*13)
	}
	return ts
}

func BenchmarkEvaluate(b *testing.B) {
	for _, size := range []struct{ refs, terms int }{{1000, 10}, {10000, 100}} {
		refs := references(size.refs)
		ts := terms(size.terms)
		b.Run(fmt.Sprintf("refs=%d/terms=%d", size.refs, size.terms), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = matcher.Evaluate(ts, refs)
			}
		})
	}
}

func BenchmarkHighlight(b *testing.B) {
	ref := "https://Shop.Example.com/catalog/items?id=12345&ref=newsletter"
	for i := 0; i < b.N; i++ {
		_ = matcher.Highlight("example.com/catalog", ref)
	}
}

func BenchmarkExtractXlsx(b *testing.B) {
	f := excelize.NewFile()
	sw, err := f.NewStreamWriter("Sheet1")
	if err != nil {
		b.Fatal(err)
	}
	if err := sw.SetRow("A1", []interface{}{"URL", "Note"}); err != nil {
		b.Fatal(err)
	}
	for i, ref := range references(5000) {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, []interface{}{ref, i}); err != nil {
			b.Fatal(err)
		}
	}
	if err := sw.Flush(); err != nil {
		b.Fatal(err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		b.Fatal(err)
	}
	f.Close()
	content := buf.Bytes()
	ex := extract.NewExtractor()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ex.ExtractBytes(content, ".xlsx"); err != nil {
			b.Fatal(err)
		}
	}
}
