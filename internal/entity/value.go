// Tagged value union for feature values.
package entity

import (
	"fmt"
	"time"
)

// ValueType enumerates the kinds a feature value can take.
type ValueType string

const (
	ValueTypeInt       ValueType = "INT"
	ValueTypeFloat     ValueType = "FLOAT"
	ValueTypeString    ValueType = "STRING"
	ValueTypeBoolean   ValueType = "BOOLEAN"
	ValueTypeJSON      ValueType = "JSON"
	ValueTypeVector    ValueType = "VECTOR"
	ValueTypeEmbedding ValueType = "EMBEDDING"
)

// Value is a tagged union over the supported value kinds. Exactly one of the
// payload fields is meaningful, selected by Kind. Null carries a nullable
// feature's explicit null.
type Value struct {
	Kind  ValueType              `json:"kind"`
	Null  bool                   `json:"null,omitempty"`
	Int   int64                  `json:"int,omitempty"`
	Float float64                `json:"float,omitempty"`
	Str   string                 `json:"str,omitempty"`
	Bool  bool                   `json:"bool,omitempty"`
	JSON  map[string]interface{} `json:"json,omitempty"`
	Vec   []float64              `json:"vec,omitempty"`
}

func IntValue(v int64) Value     { return Value{Kind: ValueTypeInt, Int: v} }
func FloatValue(v float64) Value { return Value{Kind: ValueTypeFloat, Float: v} }
func StringValue(v string) Value { return Value{Kind: ValueTypeString, Str: v} }
func BoolValue(v bool) Value     { return Value{Kind: ValueTypeBoolean, Bool: v} }
func VectorValue(v []float64) Value {
	return Value{Kind: ValueTypeVector, Vec: v}
}
func EmbeddingValue(v []float64) Value {
	return Value{Kind: ValueTypeEmbedding, Vec: v}
}
func JSONValue(v map[string]interface{}) Value {
	return Value{Kind: ValueTypeJSON, JSON: v}
}

// NullValue produces an explicit null of the given kind.
func NullValue(kind ValueType) Value { return Value{Kind: kind, Null: true} }

// AsFloat converts scalar kinds to a single float64 for model consumption.
// STRING maps to a placeholder 0 (categorical encoding is the caller's job),
// as do JSON and null values.
func (v Value) AsFloat() float64 {
	if v.Null {
		return 0
	}
	switch v.Kind {
	case ValueTypeInt:
		return float64(v.Int)
	case ValueTypeFloat:
		return v.Float
	case ValueTypeBoolean:
		if v.Bool {
			return 1
		}
		return 0
	case ValueTypeString, ValueTypeJSON, ValueTypeVector, ValueTypeEmbedding:
		return 0
	}
	return 0
}

// Numeric reports whether the value carries a number usable for range checks,
// and its float form.
func (v Value) Numeric() (float64, bool) {
	if v.Null {
		return 0, false
	}
	switch v.Kind {
	case ValueTypeInt:
		return float64(v.Int), true
	case ValueTypeFloat:
		return v.Float, true
	}
	return 0, false
}

// String implements fmt.Stringer for log output.
func (v Value) String() string {
	if v.Null {
		return fmt.Sprintf("%s(null)", v.Kind)
	}
	switch v.Kind {
	case ValueTypeInt:
		return fmt.Sprintf("%d", v.Int)
	case ValueTypeFloat:
		return fmt.Sprintf("%g", v.Float)
	case ValueTypeString:
		return v.Str
	case ValueTypeBoolean:
		return fmt.Sprintf("%t", v.Bool)
	case ValueTypeJSON:
		return fmt.Sprintf("json(%d keys)", len(v.JSON))
	case ValueTypeVector, ValueTypeEmbedding:
		return fmt.Sprintf("%s(dim=%d)", v.Kind, len(v.Vec))
	}
	return string(v.Kind)
}

// StoredValue is the persisted form of one feature observation. It lives in
// the backing store under its feature key until the TTL lapses; there is no
// explicit delete path.
type StoredValue struct {
	Value       Value     `json:"value"`
	ComputedAt  time.Time `json:"computed_at"`
	Version     int       `json:"version"`
	SourceEvent string    `json:"source_event,omitempty"`
}
