// Package e2e provides end-to-end tests that upload a generated link list in
// every supported format and check the evaluation shown for it.
package e2e

import (
	"fmt"

	"github.com/hyperjump/urlmatch/internal/models"
)

// CorpusSize is the number of reference URLs in the generated corpus.
const CorpusSize = 30

// TermCase is a search term and the match counts it must produce against the corpus.
type TermCase struct {
	Term        string
	Exact       int
	Partial     int
	Description string
}

// Corpus is a two-column link list (URL, Note) plus term cases against the URL column.
type Corpus struct {
	Columns []string
	Rows    [][]string
	Cases   []TermCase
}

// BuildCorpus returns CorpusSize rows of the form https://site{i}.example.com/page/{i}.
func BuildCorpus() *Corpus {
	rows := make([][]string, 0, CorpusSize)
	for i := 0; i < CorpusSize; i++ {
		rows = append(rows, []string{
			fmt.Sprintf("https://site%d.example.com/page/%d", i, i),
			fmt.Sprintf("note %d", i),
		})
	}
	return &Corpus{
		Columns: []string{"URL", "Note"},
		Rows:    rows,
		Cases: []TermCase{
			{"https://site3.example.com/page/3", 1, 0, "full URL is an exact match"},
			{"HTTPS://SITE4.EXAMPLE.COM/PAGE/4", 1, 0, "exact match ignores case"},
			{"site7.example.com", 0, 1, "host is a partial match"},
			{"/page/2", 0, 11, "path prefix matches page 2 and 20-29"},
			{"EXAMPLE.COM", 0, CorpusSize, "domain matches every row"},
			{"missing.org", 0, 0, "absent URL is unmatched"},
			{"https://site3.example.com/page/3/extra", 0, 0, "reference inside a longer term is not a match"},
		},
	}
}

// Terms returns the term of every case, in order.
func (c *Corpus) Terms() []string {
	terms := make([]string, len(c.Cases))
	for i, tc := range c.Cases {
		terms[i] = tc.Term
	}
	return terms
}

// References returns the URL column as a ReferenceSet.
func (c *Corpus) References() models.ReferenceSet {
	refs := make(models.ReferenceSet, len(c.Rows))
	for i, r := range c.Rows {
		refs[i] = r[0]
	}
	return refs
}
