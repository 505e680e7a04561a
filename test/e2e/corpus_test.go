package e2e

import "testing"

func TestBuildCorpus(t *testing.T) {
	c := BuildCorpus()
	if len(c.Rows) != CorpusSize {
		t.Fatalf("rows = %d, want %d", len(c.Rows), CorpusSize)
	}
	seen := make(map[string]bool)
	for _, r := range c.Rows {
		if len(r) != len(c.Columns) {
			t.Fatalf("row %q does not match columns %q", r, c.Columns)
		}
		if seen[r[0]] {
			t.Errorf("duplicate URL %q", r[0])
		}
		seen[r[0]] = true
	}
	if len(c.Terms()) != len(c.Cases) || len(c.References()) != CorpusSize {
		t.Error("Terms/References length mismatch")
	}
}
