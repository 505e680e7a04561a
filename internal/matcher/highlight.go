package matcher

import (
	"strings"
	"unicode"

	"github.com/hyperjump/urlmatch/internal/models"
)

// Highlight splits reference around the first case-insensitive occurrence of term.
// The matched part keeps the reference's original casing. When term does not
// occur, the whole reference is returned in Before.
func Highlight(term, reference string) models.Highlight {
	ref := []rune(reference)
	needle := []rune(strings.ToLower(strings.TrimSpace(term)))
	if len(needle) == 0 || len(needle) > len(ref) {
		return models.Highlight{Before: reference}
	}
	for i := 0; i+len(needle) <= len(ref); i++ {
		if hasFoldedPrefix(ref[i:], needle) {
			return models.Highlight{
				Before: string(ref[:i]),
				Match:  string(ref[i : i+len(needle)]),
				After:  string(ref[i+len(needle):]),
			}
		}
	}
	return models.Highlight{Before: reference}
}

func hasFoldedPrefix(s, lowerPrefix []rune) bool {
	for j, r := range lowerPrefix {
		if unicode.ToLower(s[j]) != r {
			return false
		}
	}
	return true
}
