package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrNotAuthorized        = errors.New("not authorized")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrOpportunityClosed    = errors.New("opportunity is closed")
	ErrCapacityExceeded     = errors.New("opportunity has no spots remaining")
	ErrDuplicateApplication = errors.New("application already exists for this opportunity")
	ErrConstraintViolation  = errors.New("storage constraint violated")
	ErrStorage              = errors.New("storage failure")
)

var (
	ErrProfileNotFound     = fmt.Errorf("profile %w", ErrNotFound)
	ErrNGODetailsNotFound  = fmt.Errorf("ngo details %w", ErrNotFound)
	ErrOpportunityNotFound = fmt.Errorf("opportunity %w", ErrNotFound)
	ErrApplicationNotFound = fmt.Errorf("application %w", ErrNotFound)
)

// ValidationError reports missing or malformed input, keyed by field name.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}

	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
