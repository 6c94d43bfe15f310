package recon

import (
	"fmt"
	"strconv"
)

// Value is a sealed interface representing a field value on either side
// of a record pair. Only Null, String, Number, and Bool implement it.
type Value interface {
	value() // Sealed - only these types implement it

	// Display returns the value as rendered in evidence and remarks.
	Display() string
}

// Null represents an absent or SQL-null field value.
// A present record with a missing field reads as Null; this is distinct
// from an entirely absent record side (a nil Record).
type Null struct{}

func (Null) value() {}

// Display implements Value.
func (Null) Display() string { return "null" }

// String represents a textual field value.
type String string

func (String) value() {}

// Display implements Value.
func (s String) Display() string { return string(s) }

// Number represents a numeric field value. Amounts, ranks, and epoch
// timestamps all travel as Number; comparisons are exact, tolerance is a
// rule-text decision, never the evaluator's.
type Number float64

func (Number) value() {}

// Display implements Value.
func (n Number) Display() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// Bool represents a boolean field value.
type Bool bool

func (Bool) value() {}

// Display implements Value.
func (b Bool) Display() string { return strconv.FormatBool(bool(b)) }

// FromAny coerces a value from a loosely typed source (database/sql scan
// targets, decoded JSON) into a Value. Unrepresentable types coerce to
// their string form rather than failing: record payloads are external
// data and a surprising column type must not abort an analysis run.
func FromAny(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null{}
	case Value:
		return x
	case string:
		return String(x)
	case []byte:
		return String(x)
	case float64:
		return Number(x)
	case float32:
		return Number(x)
	case int:
		return Number(x)
	case int32:
		return Number(x)
	case int64:
		return Number(x)
	case uint64:
		return Number(x)
	case bool:
		return Bool(x)
	default:
		return String(fmt.Sprint(x))
	}
}

// Equal reports whether two values are equal. Null equals only Null.
// Values of different kinds are never equal.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Number:
		y, ok := b.(Number)
		return ok && x == y
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	}
	return false
}

// Compare orders two values. It returns -1, 0, or +1 and ok=true when the
// values are of the same orderable kind (Number or String). Ordered
// comparisons involving Null, Bool, or mixed kinds report ok=false and
// the caller must treat the comparison as not satisfied.
func Compare(a, b Value) (int, bool) {
	switch x := a.(type) {
	case Number:
		y, ok := b.(Number)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		default:
			return 0, true
		}
	case String:
		y, ok := b.(String)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}
