package runtime

import (
	"math"
	"strconv"
	"strings"
)

// Format renders a value the way Print shows it: null/booleans in their
// canonical spellings, floats always with a fractional marker, strings
// bare at the top level.
func Format(v Value) string {
	switch val := v.(type) {
	case NullValue:
		return "None"
	case BoolValue:
		if val.Val {
			return "True"
		}
		return "False"
	case IntValue:
		return strconv.FormatInt(val.Val, 10)
	case FloatValue:
		return FormatFloat(val.Val)
	case StringValue:
		return val.Val
	case *ArrayValue:
		return "[" + joinRepr(val.Items) + "]"
	case TupleValue:
		if len(val.Items) == 1 {
			return "(" + Repr(val.Items[0]) + ",)"
		}
		return "(" + joinRepr(val.Items) + ")"
	case *MapValue:
		keys := val.Keys()
		parts := make([]string, len(keys))
		for i, key := range keys {
			value, _, _ := val.Get(key)
			parts[i] = Repr(key) + ": " + Repr(value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *SetValue:
		return "{" + joinRepr(val.Items()) + "}"
	case *RecordValue:
		names := val.FieldNames()
		parts := make([]string, len(names))
		for i, name := range names {
			value, _ := val.GetField(name)
			parts[i] = name + "=" + Repr(value)
		}
		return "Record(" + strings.Join(parts, ", ") + ")"
	case *DequeValue:
		return "deque(" + strconv.Itoa(val.Len()) + ")"
	case *HeapValue:
		return "heap(" + strconv.Itoa(val.Len()) + ")"
	default:
		return "<" + v.Kind().String() + ">"
	}
}

// Repr is Format except that strings are quoted, which is how values
// render inside containers.
func Repr(v Value) string {
	if s, ok := v.(StringValue); ok {
		return "'" + s.Val + "'"
	}
	return Format(v)
}

// FormatFloat renders in fixed notation, never scientific, and never
// elides the fractional part: 3.0 prints "3.0". Every backend runtime
// formats floats the same way; it is a parity requirement.
func FormatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatArgs joins printed values with single spaces, the Print layout.
func FormatArgs(args []Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = Format(arg)
	}
	return strings.Join(parts, " ")
}

func joinRepr(items []Value) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = Repr(item)
	}
	return strings.Join(parts, ", ")
}
