package atomspace

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueKind tags the concrete type stored in a PropertyValue, matching
// the original's closed `variant<string, long, double, bool>` — ported as
// a Go tagged union since the language has no sum types of its own, per
// original_source/src/commons/Properties.h.
type ValueKind int

const (
	KindText ValueKind = iota
	KindInteger
	KindReal
	KindBoolean
)

func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// PropertyValue is one tagged value in a Properties bag.
type PropertyValue struct {
	Kind    ValueKind
	Text    string
	Integer int64
	Real    float64
	Boolean bool
}

func TextValue(v string) PropertyValue    { return PropertyValue{Kind: KindText, Text: v} }
func IntegerValue(v int64) PropertyValue  { return PropertyValue{Kind: KindInteger, Integer: v} }
func RealValue(v float64) PropertyValue   { return PropertyValue{Kind: KindReal, Real: v} }
func BooleanValue(v bool) PropertyValue   { return PropertyValue{Kind: KindBoolean, Boolean: v} }

func (v PropertyValue) String() string {
	switch v.Kind {
	case KindText:
		return "'" + v.Text + "'"
	case KindInteger:
		return strconv.FormatInt(v.Integer, 10)
	case KindReal:
		return strconv.FormatFloat(v.Real, 'f', 6, 64)
	case KindBoolean:
		if v.Boolean {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// Properties is a string-keyed map of tagged values. Key order is
// irrelevant to equality; String() sorts keys for a stable presentation.
type Properties struct {
	values map[string]PropertyValue
}

// NewProperties builds an empty Properties bag.
func NewProperties() *Properties {
	return &Properties{values: make(map[string]PropertyValue)}
}

// Set inserts or overwrites key's value.
func (p *Properties) Set(key string, value PropertyValue) {
	p.values[key] = value
}

// Get returns the value and whether key was present.
func (p *Properties) Get(key string) (PropertyValue, bool) {
	v, ok := p.values[key]
	return v, ok
}

// GetText returns the value iff present and of kind text.
func (p *Properties) GetText(key string) (string, bool) {
	v, ok := p.values[key]
	if !ok || v.Kind != KindText {
		return "", false
	}
	return v.Text, true
}

// GetInteger returns the value iff present and of kind integer.
func (p *Properties) GetInteger(key string) (int64, bool) {
	v, ok := p.values[key]
	if !ok || v.Kind != KindInteger {
		return 0, false
	}
	return v.Integer, true
}

// GetReal returns the value iff present and of kind real.
func (p *Properties) GetReal(key string) (float64, bool) {
	v, ok := p.values[key]
	if !ok || v.Kind != KindReal {
		return 0, false
	}
	return v.Real, true
}

// GetBoolean returns the value iff present and of kind boolean.
func (p *Properties) GetBoolean(key string) (bool, bool) {
	v, ok := p.values[key]
	if !ok || v.Kind != KindBoolean {
		return false, false
	}
	return v.Boolean, true
}

// Len returns the number of keys.
func (p *Properties) Len() int { return len(p.values) }

// Keys returns the sorted key list.
func (p *Properties) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders a stable, sorted-key representation: {key1: value1, ...}.
func (p *Properties) String() string {
	if len(p.values) == 0 {
		return "{}"
	}
	keys := p.Keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, p.values[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
