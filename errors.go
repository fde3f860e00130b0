package ssmkv

import (
	"errors"
	"fmt"

	"github.com/mplewis/ssmkv/backing"
	"github.com/mplewis/ssmkv/codec"
)

var (
	// ErrInvalidArgument is returned before any backend call when the caller's input cannot be applied.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMalformedValue is returned when a stored value does not decode as the expected collection.
	ErrMalformedValue = codec.ErrMalformedValue
)

// ConflictError is returned when a compare-and-swap update kept losing to concurrent writers.
type ConflictError struct {
	Name     string
	Attempts int
}

// Error converts a ConflictError into a human-readable string.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("parameter %s changed concurrently on each of %d attempts", e.Name, e.Attempts)
}

func (e *ConflictError) Unwrap() error {
	return backing.ErrConflict
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
