package models

import "fmt"

// MatchKind classifies how a search term matched a reference.
type MatchKind int

const (
	// Exact is case-insensitive full-string equality.
	Exact MatchKind = iota
	// Partial is case-insensitive containment of the term inside a longer reference.
	Partial
)

// String returns the JSON/text form of the kind.
func (k MatchKind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Partial:
		return "partial"
	default:
		return fmt.Sprintf("MatchKind(%d)", int(k))
	}
}

// Label is the human-readable name shown next to a match.
func (k MatchKind) Label() string {
	switch k {
	case Exact:
		return "Exact match"
	case Partial:
		return "Partial match"
	default:
		return k.String()
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k MatchKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *MatchKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "exact":
		*k = Exact
	case "partial":
		*k = Partial
	default:
		return fmt.Errorf("unknown match kind %q", string(b))
	}
	return nil
}

// MatchRecord pairs a search term with one reference it matched.
type MatchRecord struct {
	Term      string    `json:"term"`
	Reference string    `json:"reference"`
	Kind      MatchKind `json:"kind"`
}

// TermResult groups the matches of a single search term. Terms are kept in input order,
// so a term entered twice yields two results.
type TermResult struct {
	Term    string        `json:"term"`
	Matches []MatchRecord `json:"matches"`
}

// Matched reports whether the term matched at least one reference.
func (r TermResult) Matched() bool {
	return len(r.Matches) > 0
}

// Evaluation is the outcome of matching search terms against a ReferenceSet.
// Matches and Results hold the same records: Matches flat, Results grouped per term.
type Evaluation struct {
	Matches      []MatchRecord `json:"matches"`
	Unmatched    []string      `json:"unmatched"`
	Results      []TermResult  `json:"results"`
	ExactCount   int           `json:"exact_count"`
	PartialCount int           `json:"partial_count"`
}

// Highlight is a reference split around the part a term matched.
type Highlight struct {
	Before string `json:"before"`
	Match  string `json:"match"`
	After  string `json:"after"`
}
