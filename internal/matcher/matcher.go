// Package matcher classifies search terms against a set of reference strings.
package matcher

import (
	"strings"

	"github.com/hyperjump/urlmatch/internal/models"
)

// ValidTerms trims each term and drops the empty ones, keeping input order.
// Duplicates are kept.
func ValidTerms(terms []string) []string {
	valid := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		valid = append(valid, t)
	}
	return valid
}

// Evaluate matches every valid term against every reference, case-insensitively.
// A term equal to a reference is an Exact match; a term contained in a longer
// reference is a Partial match. Containment is only checked term-in-reference.
// Every matching reference is reported, in term order then reference order.
// Terms with no match are listed in Unmatched.
func Evaluate(terms []string, references models.ReferenceSet) *models.Evaluation {
	folded := make([]string, len(references))
	for i, r := range references {
		folded[i] = strings.ToLower(strings.TrimSpace(r))
	}

	valid := ValidTerms(terms)
	eval := &models.Evaluation{
		Matches:   []models.MatchRecord{},
		Unmatched: []string{},
		Results:   make([]models.TermResult, 0, len(valid)),
	}
	for _, term := range valid {
		needle := strings.ToLower(term)
		result := models.TermResult{Term: term, Matches: []models.MatchRecord{}}
		for i, ref := range folded {
			var kind models.MatchKind
			switch {
			case needle == ref:
				kind = models.Exact
				eval.ExactCount++
			case strings.Contains(ref, needle):
				kind = models.Partial
				eval.PartialCount++
			default:
				continue
			}
			result.Matches = append(result.Matches, models.MatchRecord{
				Term:      term,
				Reference: references[i],
				Kind:      kind,
			})
		}
		if !result.Matched() {
			eval.Unmatched = append(eval.Unmatched, term)
		}
		eval.Matches = append(eval.Matches, result.Matches...)
		eval.Results = append(eval.Results, result)
	}
	return eval
}
