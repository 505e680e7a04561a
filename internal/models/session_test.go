package models

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewSession(t *testing.T) {
	s := NewSession("abc")
	if s.ID != "abc" {
		t.Errorf("ID = %q", s.ID)
	}
	if len(s.Terms) != 1 || s.Terms[0] != "" {
		t.Errorf("new session should have one empty slot, got %q", s.Terms)
	}
}

func TestSession_TermSlots(t *testing.T) {
	s := NewSession("s")
	s.AddTerm()
	s.AddTerm()
	if len(s.Terms) != 3 {
		t.Fatalf("after two adds: got %d slots", len(s.Terms))
	}
	if err := s.SetTerm(1, "https://x.com"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveTerm(0); err != nil {
		t.Fatal(err)
	}
	want := []string{"https://x.com", ""}
	if !reflect.DeepEqual(s.Terms, want) {
		t.Errorf("terms = %q, want %q", s.Terms, want)
	}
}

func TestSession_RemoveTerm(t *testing.T) {
	tests := []struct {
		name    string
		terms   []string
		index   int
		wantErr error
	}{
		{"last slot kept", []string{"a"}, 0, ErrLastTerm},
		{"negative index", []string{"a", "b"}, -1, ErrIndexOutOfRange},
		{"index past end", []string{"a", "b"}, 2, ErrIndexOutOfRange},
		{"middle", []string{"a", "b", "c"}, 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{Terms: append([]string(nil), tt.terms...)}
			err := s.RemoveTerm(tt.index)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RemoveTerm(%d) error = %v, want %v", tt.index, err, tt.wantErr)
			}
			if tt.wantErr != nil && len(s.Terms) != len(tt.terms) {
				t.Errorf("failed remove changed terms: %q", s.Terms)
			}
		})
	}
}

func TestSession_SetTermOutOfRange(t *testing.T) {
	s := NewSession("s")
	if err := s.SetTerm(3, "x"); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetTerm(3) error = %v", err)
	}
}

func TestSession_SetTermsEmptyKeepsOneSlot(t *testing.T) {
	s := NewSession("s")
	s.SetTerms(nil)
	if len(s.Terms) != 1 || s.Terms[0] != "" {
		t.Errorf("terms = %q", s.Terms)
	}
}

func TestSession_CloneIsDeep(t *testing.T) {
	s := NewSession("s")
	s.Table = &Table{Columns: []string{"URL"}, Rows: [][]string{{"a"}}}
	c := s.Clone()
	c.Terms[0] = "changed"
	c.Table.Rows[0][0] = "changed"
	if s.Terms[0] != "" || s.Table.Rows[0][0] != "a" {
		t.Error("clone shares state with original")
	}
}
