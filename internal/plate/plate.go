// Package plate canonicalizes user- and OCR-supplied plate strings.
//
// Plates are stored and displayed exactly as typed (trimmed); only the
// comparison key is case-folded. International plate formats vary too
// much for forced uppercasing to be safe.
package plate

import (
	"fmt"
	"strings"
)

const MaxLength = 20

type Reason string

const (
	ReasonEmpty         Reason = "empty"
	ReasonTooLong       Reason = "too_long"
	ReasonInvalidFormat Reason = "invalid_format"
)

type ValidationError struct {
	Reason Reason
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonEmpty:
		return "plate number is required"
	case ReasonTooLong:
		return fmt.Sprintf("plate number exceeds %d characters", MaxLength)
	default:
		return "plate number contains invalid characters"
	}
}

// Plate is a validated plate number.
type Plate struct {
	display string
}

// Normalize trims the raw input and validates it. Alphanumerics, spaces
// and hyphens are accepted; anything else is rejected.
func Normalize(raw string) (Plate, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Plate{}, &ValidationError{Reason: ReasonEmpty}
	}
	if len(trimmed) > MaxLength {
		return Plate{}, &ValidationError{Reason: ReasonTooLong}
	}
	for _, r := range trimmed {
		if !isAllowed(r) {
			return Plate{}, &ValidationError{Reason: ReasonInvalidFormat}
		}
	}
	return Plate{display: trimmed}, nil
}

func isAllowed(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r == ' ' || r == '-':
		return true
	}
	return false
}

// String returns the plate as typed (trimmed), for storage and display.
func (p Plate) String() string {
	return p.display
}

// Fold returns the case-insensitive comparison key.
func (p Plate) Fold() string {
	return strings.ToLower(p.display)
}

// Equal reports whether two plate strings refer to the same plate,
// ignoring case.
func Equal(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
