package demandcheck

import (
	"fmt"
	"sort"
	"strings"
)

// Validation error codes surfaced to callers.
const (
	CodeInvalidAnswer  = "invalid_answer"
	CodeBirthdateEmpty = "birthdate_is_empty"
)

// ValidationError reports answers that failed field rules, keyed by
// question identifier. It is always recoverable: callers re-prompt the
// failed fields.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(questionIdent, code string) *ValidationError {
	return &ValidationError{Fields: map[string]string{questionIdent: code}}
}

// Add records a failed field. Safe on a zero-value receiver map.
func (e *ValidationError) Add(questionIdent, code string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[questionIdent] = code
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	idents := make([]string, 0, len(e.Fields))
	for ident := range e.Fields {
		idents = append(idents, ident)
	}
	sort.Strings(idents)

	parts := make([]string, 0, len(idents))
	for _, ident := range idents {
		parts = append(parts, fmt.Sprintf("%s: %s", ident, e.Fields[ident]))
	}
	return "demandcheck: validation failed: " + strings.Join(parts, ", ")
}
