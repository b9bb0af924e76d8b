package selector

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/dustin/go-humanize"
)

// DateLayout is the timestamp format the inventory service expects.
const DateLayout = "2006-01-02T15:04:05"

const (
	// OperationKey holds the combinator applied across fields.
	OperationKey     = "operation"
	DefaultOperation = "and"
)

// reserved maps the uppercased form of every asset finder parameter to the
// casing the inventory service expects.
var reserved = map[string]string{
	"TAG":           "tag",
	"TYPE":          "type",
	"STATUS":        "status",
	"STATE":         "state",
	"OPERATION":     "operation",
	"SIZE":          "size",
	"PAGE":          "page",
	"SORT":          "sort",
	"SORTFIELD":     "sortField",
	"DETAILS":       "details",
	"REMOTELOOKUP":  "remoteLookup",
	"QUERY":         "query",
	"ATTRIBUTE":     "attribute",
	"CREATEDAFTER":  "createdAfter",
	"CREATEDBEFORE": "createdBefore",
	"UPDATEDAFTER":  "updatedAfter",
	"UPDATEDBEFORE": "updatedBefore",
}

var dateFields = map[string]bool{
	"createdAfter":  true,
	"createdBefore": true,
	"updatedAfter":  true,
	"updatedBefore": true,
}

// Capacity attributes are matched on their uppercased key.
var capacityFields = map[string]bool{
	"MEMORY_SIZE_TOTAL":  true,
	"DISK_STORAGE_TOTAL": true,
}

// Defaults returns the selector applied when the caller does not override
// a field: allocated assets, up to 3000 of them.
func Defaults() Selector {
	return New(
		Field{Key: "status", Value: "allocated"},
		Field{Key: "size", Value: "3000"},
	)
}

// Kind tells how a key was routed by Classify.
type Kind int

const (
	// Generic keys are free-form attributes, sent lowercased.
	Generic Kind = iota
	// ExplicitCase keys were written in capitals and are sent as given.
	ExplicitCase
	// Reserved keys are finder parameters, sent in canonical casing.
	Reserved
)

func (k Kind) String() string {
	switch k {
	case Reserved:
		return "reserved"
	case ExplicitCase:
		return "explicit"
	default:
		return "generic"
	}
}

// Class is the routing decision for a single key.
type Class struct {
	Kind Kind
	Name string
}

// Classify decides the canonical identity of a caller supplied key.
func Classify(key string) Class {
	upper := strings.ToUpper(key)
	if canonical, ok := reserved[upper]; ok {
		return Class{Kind: Reserved, Name: canonical}
	}
	if key == upper {
		return Class{Kind: ExplicitCase, Name: key}
	}
	return Class{Kind: Generic, Name: strings.ToLower(key)}
}

// Normalize merges raw over defaults and rewrites every key and value into
// the form the inventory client sends. It never fails: values that do not
// parse as dates or sizes are passed through for the service to reject.
func Normalize(raw []Field, defaults Selector) Selector {
	var out Selector
	for _, f := range defaults.Fields() {
		key, value := canonicalize(f)
		out.Set(key, value)
	}
	for _, f := range raw {
		key, value := canonicalize(f)
		out.Set(key, value)
	}
	if _, ok := out.Get(OperationKey); !ok {
		out.Set(OperationKey, DefaultOperation)
	}
	return out
}

func canonicalize(f Field) (string, string) {
	c := Classify(f.Key)
	value := f.Value
	switch {
	case c.Kind == Reserved && dateFields[c.Name]:
		value = normalizeDate(value)
	case c.Kind != Reserved && capacityFields[strings.ToUpper(c.Name)]:
		value = normalizeCapacity(value)
	}
	return c.Name, value
}

func normalizeDate(value string) string {
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return value
	}
	return t.Format(DateLayout)
}

func normalizeCapacity(value string) string {
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return value
	}
	return strconv.FormatUint(n, 10)
}
