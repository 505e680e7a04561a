package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyperjump/urlmatch/internal/models"
)

func TestHighlight(t *testing.T) {
	tests := []struct {
		name      string
		term      string
		reference string
		want      models.Highlight
	}{
		{"exact keeps reference casing", "HTTPS://A.COM", "https://a.com", models.Highlight{Match: "https://a.com"}},
		{"partial in the middle", "example", "https://Example.com/x", models.Highlight{Before: "https://", Match: "Example", After: ".com/x"}},
		{"first occurrence wins", "a", "bab", models.Highlight{Before: "b", Match: "a", After: "b"}},
		{"term is trimmed", "  com ", "a.com", models.Highlight{Before: "a.", Match: "com"}},
		{"multibyte", "ПРИМЕР", "https://пример.рф", models.Highlight{Before: "https://", Match: "пример", After: ".рф"}},
		{"not found", "zzz", "https://a.com", models.Highlight{Before: "https://a.com"}},
		{"longer than reference", "https://a.com/long", "a.com", models.Highlight{Before: "a.com"}},
		{"empty term", " ", "a.com", models.Highlight{Before: "a.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Highlight(tt.term, tt.reference))
		})
	}
}

func TestHighlight_agreesWithEvaluate(t *testing.T) {
	refs := models.ReferenceSet{"https://Shop.example.com/Cart", "https://example.com", "other"}
	ev := Evaluate([]string{"EXAMPLE.com", "cart"}, refs)
	for _, m := range ev.Matches {
		h := Highlight(m.Term, m.Reference)
		assert.NotEmpty(t, h.Match, "match %+v should highlight", m)
		assert.Equal(t, m.Reference, h.Before+h.Match+h.After)
	}
}
