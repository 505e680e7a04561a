package models

// View is everything the page renders for one session. It is derived from the
// session on every request and never stored.
type View struct {
	SessionID      string       `json:"session_id"`
	FileName       string       `json:"file_name,omitempty"`
	Columns        []string     `json:"columns"`
	Column         string       `json:"column,omitempty"`
	ReferenceCount int          `json:"reference_count"`
	Preview        []string     `json:"preview"`
	PreviewMore    int          `json:"preview_more"`
	Terms          []string     `json:"terms"`
	ValidTermCount int          `json:"valid_term_count"`
	Evaluation     *Evaluation  `json:"evaluation,omitempty"`
	Error          string       `json:"error,omitempty"`
	Notice         string       `json:"notice,omitempty"`
}

// HasFile reports whether a table has been uploaded.
func (v *View) HasFile() bool {
	return v.FileName != ""
}

// UnmatchedCount is the number of terms with no matching reference.
func (v *View) UnmatchedCount() int {
	if v.Evaluation == nil {
		return 0
	}
	return len(v.Evaluation.Unmatched)
}
