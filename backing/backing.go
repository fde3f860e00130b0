package backing

import (
	"context"
	"errors"
	"fmt"
)

// Name is the name of a parameter in the backend.
type Name = string

// Version identifies a revision of a parameter's value. The zero Version means the parameter does not exist.
type Version int64

// Missing is the Version of a parameter that does not exist.
const Missing Version = 0

var (
	// ErrNotFound is returned by Get when the parameter does not exist.
	ErrNotFound = errors.New("parameter not found")
	// ErrAlreadyExists is returned by Put without overwrite when the parameter already exists.
	ErrAlreadyExists = errors.New("parameter already exists")
	// ErrConflict is returned by PutIfVersion when the stored version no longer matches the expected one.
	ErrConflict = errors.New("parameter version conflict")
)

// Backing is an interface by which a Store accesses parameters in some remote parameter store.
type Backing interface {
	// Get returns the current value of the named parameter, or ErrNotFound.
	Get(ctx context.Context, name Name) (string, error)
	// Put writes the value of the named parameter. Without overwrite, Put fails with ErrAlreadyExists if the
	// parameter exists.
	Put(ctx context.Context, name Name, value string, overwrite bool) error
}

// Entry is a parameter value together with the version it was read at.
type Entry struct {
	Value   string
	Version Version
}

// Versioned is a Backing that supports conditional writes.
type Versioned interface {
	Backing
	// GetVersioned returns the current value and version of the named parameter, or ErrNotFound.
	GetVersioned(ctx context.Context, name Name) (Entry, error)
	// PutIfVersion writes the value only if the stored version equals version, and fails with ErrConflict
	// otherwise. A version of Missing means the parameter must not exist yet.
	PutIfVersion(ctx context.Context, name Name, value string, version Version) error
}

// BackendError wraps any failure of the remote store other than the sentinel errors above.
type BackendError struct {
	Op   string
	Name Name
	Err  error
}

// Error converts a BackendError into a human-readable string.
func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// wrap classifies err: sentinel errors pass through untouched, everything else becomes a BackendError.
func wrap(op string, name Name, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrConflict) {
		return err
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Op: op, Name: name, Err: err}
}
