// Package ssmkv keeps small collections in a remote parameter store, one collection per parameter.
//
// A set parameter holds a sorted, bracketed, comma-separated list ("[a,b,c]"); a map parameter holds a JSON
// object of strings. Parameters are created with an empty collection the first time they are touched, and
// every update reads the whole value, changes it in memory and writes the whole value back.
//
// Example usage:
//
//	b, err := backing.NewSSM(ctx, backing.SSMArgs{})
//	if err != nil {
//		return err
//	}
//	store, err := ssmkv.New(ssmkv.Args{Backing: b})
//	if err != nil {
//		return err
//	}
//
//	// Add an element to a set, creating the parameter as "[]" first if needed
//	err = store.UpdateSet(ctx, "/ml/enabled-models", "churn-v2", ssmkv.Add)
//	if err != nil {
//		return err
//	}
//
//	// Map a key to a value
//	value := "s3://models/churn-v2"
//	err = store.UpdateMap(ctx, "/ml/model-uris", "churn-v2", &value, ssmkv.Add)
//
// Concurrent updates of the same parameter race and the last write wins. Set Args.Locker, or
// Args.CompareAndSwap with a backing that supports it, to serialize them.
package ssmkv

import (
	"fmt"

	"github.com/mplewis/ssmkv/codec"
)

// DEFAULT_MAX_ATTEMPTS is how many read-modify-write cycles a compare-and-swap update makes before giving up.
const DEFAULT_MAX_ATTEMPTS = 5

// Kind is the kind of collection a parameter holds.
type Kind int

const (
	KindSet Kind = iota
	KindMap
)

// EmptyValue returns the canonical encoding of an empty collection of this kind.
func (k Kind) EmptyValue() string {
	if k == KindMap {
		return codec.EmptyMap
	}
	return codec.EmptySet
}

func (k Kind) String() string {
	if k == KindMap {
		return "map"
	}
	return "set"
}

// Action is the change an update makes to a collection.
type Action string

const (
	Add    Action = "add"
	Remove Action = "remove"
)

// ParseAction converts a command-line action into an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case Add, Remove:
		return a, nil
	default:
		return "", fmt.Errorf("%w: action must be %q or %q, got %q", ErrInvalidArgument, Add, Remove, s)
	}
}

// NoopWrites decides whether an update that leaves the collection unchanged still writes it back.
type NoopWrites int

const (
	// NoopDefault writes set updates back unconditionally and skips the write when removing an absent map key.
	NoopDefault NoopWrites = iota
	// NoopWrite always writes the collection back.
	NoopWrite
	// NoopSkip never writes an unchanged collection back.
	NoopSkip
)

// ParseNoopWrites converts a configuration value into a NoopWrites policy.
func ParseNoopWrites(s string) (NoopWrites, error) {
	switch s {
	case "", "default":
		return NoopDefault, nil
	case "write":
		return NoopWrite, nil
	case "skip":
		return NoopSkip, nil
	default:
		return NoopDefault, fmt.Errorf("%w: no-op write policy must be default, write or skip, got %q", ErrInvalidArgument, s)
	}
}

// writes reports whether an update of the given kind and action must write, given whether it changed anything.
func (p NoopWrites) writes(kind Kind, action Action, changed bool) bool {
	switch p {
	case NoopWrite:
		return true
	case NoopSkip:
		return changed
	default:
		if kind == KindMap && action == Remove {
			return changed
		}
		return true
	}
}
