package codec

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// EmptyMap is the canonical encoding of a map with no entries.
const EmptyMap = "{}"

// Map is a JSON object. Entries written through Set hold strings; entries written by other tools keep whatever
// JSON they were stored with.
type Map map[string]json.RawMessage

// NewMap builds a Map holding the given string entries.
func NewMap(entries map[string]string) Map {
	m := make(Map, len(entries))
	for k, v := range entries {
		m.Set(k, v)
	}
	return m
}

// Set maps key to the string value.
func (m Map) Set(key, value string) {
	m[key] = marshal(value)
}

// Get returns the value for key. String values are unquoted; any other value is returned as its JSON text.
func (m Map) Get(key string) (string, bool) {
	raw, ok := m[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw), true
	}
	return s, true
}

// Delete removes key and reports whether the map changed.
func (m Map) Delete(key string) bool {
	if _, ok := m[key]; !ok {
		return false
	}
	delete(m, key)
	return true
}

// Keys returns the keys in ascending byte order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DecodeMap parses a JSON object. Values of any JSON type are kept as they are.
func DecodeMap(raw string) (Map, error) {
	var m Map
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, &MalformedValueError{Raw: raw, Reason: err.Error()}
	}
	// "null" unmarshals without error
	if m == nil {
		return nil, &MalformedValueError{Raw: raw, Reason: "expected a JSON object"}
	}
	return m, nil
}

// EncodeMap renders the map as compact JSON with sorted keys. HTML characters are left unescaped so values stay
// readable in the console.
func EncodeMap(m Map) string {
	if m == nil {
		return EmptyMap
	}
	return string(marshal(map[string]json.RawMessage(m)))
}

// marshal encodes v without HTML escaping. Only strings and maps of decoded values reach it, and those always
// encode.
func marshal(v interface{}) json.RawMessage {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
	return json.RawMessage(strings.TrimSuffix(buf.String(), "\n"))
}
