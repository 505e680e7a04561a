package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// EvaluateRequest is the body of a stateless evaluate call.
type EvaluateRequest struct {
	Terms      []string `json:"terms" validate:"max=10000,dive,max=2048"`
	References []string `json:"references" validate:"max=10000,dive,max=2048"`
}

// Validate checks field limits.
func (r *EvaluateRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid evaluate request: %w", err)
	}
	return nil
}

// ReferenceSet returns the request references trimmed, with empty entries dropped.
func (r *EvaluateRequest) ReferenceSet() ReferenceSet {
	t := &Table{Rows: make([][]string, len(r.References))}
	for i, ref := range r.References {
		t.Rows[i] = []string{ref}
	}
	return t.Column(0)
}
