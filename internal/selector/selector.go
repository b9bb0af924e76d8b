// Package selector turns loosely typed key:value tokens into the canonical
// asset query understood by the inventory service.
package selector

import (
	"fmt"
	"strings"
)

// Field is one key/value pair of a selector.
type Field struct {
	Key   string
	Value string
}

// Selector is an ordered set of query fields. Keys are unique.
type Selector struct {
	fields []Field
	index  map[string]int
}

// New builds a selector from fields, later duplicates replacing earlier ones.
func New(fields ...Field) Selector {
	var s Selector
	for _, f := range fields {
		s.Set(f.Key, f.Value)
	}
	return s
}

// Set replaces the value of an existing key in place or appends a new field.
func (s *Selector) Set(key, value string) {
	if s.index == nil {
		s.index = map[string]int{}
	}
	if i, ok := s.index[key]; ok {
		s.fields[i].Value = value
		return
	}
	s.index[key] = len(s.fields)
	s.fields = append(s.fields, Field{Key: key, Value: value})
}

// Get returns the value stored for key.
func (s Selector) Get(key string) (string, bool) {
	i, ok := s.index[key]
	if !ok {
		return "", false
	}
	return s.fields[i].Value, true
}

// Fields returns a copy of the fields in order.
func (s Selector) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}


// String renders the selector back in key:value form.
func (s Selector) String() string {
	parts := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		parts = append(parts, f.Key+":"+f.Value)
	}
	return strings.Join(parts, " ")
}

// Parse splits a whitespace separated list of key:value tokens. The value
// is everything after the first colon, so timestamps survive intact.
func Parse(expr string) ([]Field, error) {
	var out []Field
	for _, tok := range strings.Fields(expr) {
		key, value, ok := strings.Cut(tok, ":")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid selector token %q: want key:value", tok)
		}
		out = append(out, Field{Key: key, Value: value})
	}
	return out, nil
}
