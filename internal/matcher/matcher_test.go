package matcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/urlmatch/internal/models"
)

func kinds(records []models.MatchRecord) (exact, partial int) {
	for _, r := range records {
		if r.Kind == models.Exact {
			exact++
		} else {
			partial++
		}
	}
	return exact, partial
}

func TestEvaluate_SubstringOfSeveralReferences(t *testing.T) {
	refs := models.ReferenceSet{"https://x.com/a", "https://x.com/ab"}
	eval := Evaluate([]string{"a"}, refs)

	require.Len(t, eval.Matches, 2)
	exact, partial := kinds(eval.Matches)
	assert.Equal(t, 0, exact)
	assert.Equal(t, 2, partial)
	assert.Empty(t, eval.Unmatched)
	assert.Equal(t, "https://x.com/a", eval.Matches[0].Reference)
	assert.Equal(t, "https://x.com/ab", eval.Matches[1].Reference)
}

func TestEvaluate_CaseInsensitiveExact(t *testing.T) {
	eval := Evaluate([]string{"foo"}, models.ReferenceSet{"Foo"})

	require.Len(t, eval.Matches, 1)
	assert.Equal(t, models.MatchRecord{Term: "foo", Reference: "Foo", Kind: models.Exact}, eval.Matches[0])
	assert.Equal(t, 1, eval.ExactCount)
	assert.Equal(t, 0, eval.PartialCount)
}

func TestEvaluate_Unmatched(t *testing.T) {
	eval := Evaluate([]string{"xyz"}, models.ReferenceSet{"abc"})

	assert.Empty(t, eval.Matches)
	assert.Equal(t, []string{"xyz"}, eval.Unmatched)
	require.Len(t, eval.Results, 1)
	assert.False(t, eval.Results[0].Matched())
}

func TestEvaluate_EmptyReferences(t *testing.T) {
	eval := Evaluate([]string{"a", "b"}, nil)

	assert.Empty(t, eval.Matches)
	assert.Equal(t, []string{"a", "b"}, eval.Unmatched)
}

func TestEvaluate_ExactAndPartialForSameTerm(t *testing.T) {
	refs := models.ReferenceSet{"https://x.com/page", "https://x.com", "https://y.com"}
	eval := Evaluate([]string{"HTTPS://X.COM"}, refs)

	require.Len(t, eval.Matches, 2)
	assert.Equal(t, models.Partial, eval.Matches[0].Kind)
	assert.Equal(t, models.Exact, eval.Matches[1].Kind)
	assert.Equal(t, "HTTPS://X.COM", eval.Matches[0].Term)
}

func TestEvaluate_NotSymmetric(t *testing.T) {
	eval := Evaluate([]string{"https://x.com/a/b"}, models.ReferenceSet{"https://x.com/a"})

	assert.Empty(t, eval.Matches)
	assert.Equal(t, []string{"https://x.com/a/b"}, eval.Unmatched)
}

func TestEvaluate_TrimsAndDropsEmptyTerms(t *testing.T) {
	eval := Evaluate([]string{"", "   ", "  foo  "}, models.ReferenceSet{"FOO"})

	require.Len(t, eval.Results, 1)
	assert.Equal(t, "foo", eval.Results[0].Term)
	assert.Equal(t, models.Exact, eval.Matches[0].Kind)
}

func TestEvaluate_TrimIsIdempotent(t *testing.T) {
	refs := models.ReferenceSet{"https://x.com/a", "https://x.com/ab", "other"}
	base := Evaluate([]string{"x.com/a"}, refs)
	for _, term := range []string{" x.com/a", "x.com/a\t", "\n x.com/a  "} {
		got := Evaluate([]string{term}, refs)
		assert.Equal(t, base, got, "term %q", term)
	}
}

func TestEvaluate_DuplicateTermsCountedSeparately(t *testing.T) {
	eval := Evaluate([]string{"a", "a", "zzz", "zzz"}, models.ReferenceSet{"a"})

	assert.Len(t, eval.Results, 4)
	assert.Equal(t, 2, eval.ExactCount)
	assert.Equal(t, []string{"zzz", "zzz"}, eval.Unmatched)
}

func TestEvaluate_ReferenceDuplicatesNotDeduplicated(t *testing.T) {
	eval := Evaluate([]string{"a"}, models.ReferenceSet{"A", "a"})

	assert.Len(t, eval.Matches, 2)
	assert.Equal(t, 2, eval.ExactCount)
}

func TestEvaluate_Properties(t *testing.T) {
	refs := models.ReferenceSet{"https://Example.com/Path", "example.org", "https://x.com/?q=1"}
	terms := []string{"example", "EXAMPLE.ORG", "/path", "?q=1", "nothing", "https://example.com/path"}
	eval := Evaluate(terms, refs)

	unmatched := map[string]int{}
	for _, u := range eval.Unmatched {
		unmatched[u]++
	}
	for _, m := range eval.Matches {
		term, ref := strings.ToLower(m.Term), strings.ToLower(m.Reference)
		if term == ref {
			assert.Equal(t, models.Exact, m.Kind, "%q vs %q", m.Term, m.Reference)
		} else {
			assert.True(t, strings.Contains(ref, term))
			assert.Equal(t, models.Partial, m.Kind, "%q vs %q", m.Term, m.Reference)
		}
		assert.Zero(t, unmatched[m.Term], "matched term %q also listed as unmatched", m.Term)
	}
	assert.Equal(t, map[string]int{"nothing": 1}, unmatched)
	assert.Equal(t, eval.ExactCount+eval.PartialCount, len(eval.Matches))
}

func TestValidTerms(t *testing.T) {
	got := ValidTerms([]string{" a ", "", "b", "\t", "a"})
	assert.Equal(t, []string{"a", "b", "a"}, got)
	assert.Empty(t, ValidTerms(nil))
}
