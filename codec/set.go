package codec

import (
	"regexp"
	"sort"
	"strings"

	"github.com/thoas/go-funk"
)

// EmptySet is the canonical encoding of a set with no elements.
const EmptySet = "[]"

var setPattern = regexp.MustCompile(`(?s)^\[(.*)\]$`)

// Set is an unordered collection of unique strings.
type Set map[string]struct{}

// NewSet builds a Set holding the given elements.
func NewSet(elems ...string) Set {
	s := make(Set, len(elems))
	for _, e := range elems {
		s[e] = struct{}{}
	}
	return s
}

// Add inserts e and reports whether the set changed.
func (s Set) Add(e string) bool {
	if s.Has(e) {
		return false
	}
	s[e] = struct{}{}
	return true
}

// Remove discards e and reports whether the set changed.
func (s Set) Remove(e string) bool {
	if !s.Has(e) {
		return false
	}
	delete(s, e)
	return true
}

func (s Set) Has(e string) bool {
	_, ok := s[e]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

// Sorted returns the elements in ascending byte order.
func (s Set) Sorted() []string {
	elems := make([]string, 0, len(s))
	for e := range s {
		elems = append(elems, e)
	}
	sort.Strings(elems)
	return elems
}

// DecodeSet parses a bracketed, comma-separated value. Empty elements are dropped and duplicates collapse.
func DecodeSet(raw string) (Set, error) {
	m := setPattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, &MalformedValueError{Raw: raw, Reason: "expected a bracketed, comma-separated list"}
	}
	elems := funk.FilterString(strings.Split(m[1], ","), func(e string) bool { return e != "" })
	return NewSet(elems...), nil
}

// EncodeSet renders the set sorted, comma-joined and bracketed. Empty elements are never written.
func EncodeSet(s Set) string {
	elems := funk.FilterString(s.Sorted(), func(e string) bool { return e != "" })
	return "[" + strings.Join(elems, ",") + "]"
}
