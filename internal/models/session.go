package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrIndexOutOfRange is returned when a term slot index does not exist.
	ErrIndexOutOfRange = errors.New("term index out of range")
	// ErrLastTerm is returned when removing the only remaining term slot.
	ErrLastTerm = errors.New("at least one term slot must remain")
)

// Session is the editable state of one visitor: the uploaded table, the selected
// column and the list of search term slots.
type Session struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name,omitempty"`
	Table     *Table    `json:"table,omitempty"`
	Column    string    `json:"column,omitempty"`
	Terms     []string  `json:"terms"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession returns a session with a single empty term slot.
func NewSession(id string) *Session {
	return &Session{ID: id, Terms: []string{""}, UpdatedAt: time.Now()}
}

// AddTerm appends one empty term slot.
func (s *Session) AddTerm() {
	s.Terms = append(s.Terms, "")
}

// RemoveTerm deletes the slot at index i. The last remaining slot cannot be removed.
func (s *Session) RemoveTerm(i int) error {
	if i < 0 || i >= len(s.Terms) {
		return fmt.Errorf("remove term %d: %w", i, ErrIndexOutOfRange)
	}
	if len(s.Terms) <= 1 {
		return ErrLastTerm
	}
	s.Terms = append(s.Terms[:i], s.Terms[i+1:]...)
	return nil
}

// SetTerm replaces the text of slot i.
func (s *Session) SetTerm(i int, value string) error {
	if i < 0 || i >= len(s.Terms) {
		return fmt.Errorf("set term %d: %w", i, ErrIndexOutOfRange)
	}
	s.Terms[i] = value
	return nil
}

// SetTerms replaces all slots. An empty list leaves one empty slot.
func (s *Session) SetTerms(values []string) {
	if len(values) == 0 {
		s.Terms = []string{""}
		return
	}
	s.Terms = append([]string(nil), values...)
}

// ClearFile drops the uploaded table and the selected column.
func (s *Session) ClearFile() {
	s.FileName = ""
	s.Table = nil
	s.Column = ""
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	out := *s
	out.Table = s.Table.Clone()
	out.Terms = append([]string(nil), s.Terms...)
	return &out
}
