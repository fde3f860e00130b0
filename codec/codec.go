// Package codec translates between a parameter's string value and an in-memory collection.
//
// Set values are bracketed, comma-joined and sorted: "[a,b,c]". Map values are JSON objects of strings.
// Both encodings are deterministic, so equal collections always produce byte-identical values.
package codec

import (
	"errors"
	"fmt"
)

// ErrMalformedValue matches every MalformedValueError.
var ErrMalformedValue = errors.New("malformed parameter value")

// MalformedValueError is returned when a stored value does not follow the expected encoding.
type MalformedValueError struct {
	Raw    string
	Reason string
}

// Error converts a MalformedValueError into a human-readable string.
func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("malformed parameter value %q: %s", e.Raw, e.Reason)
}

func (e *MalformedValueError) Is(target error) bool {
	return target == ErrMalformedValue
}
