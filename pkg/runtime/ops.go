package runtime

import (
	"math"
	"strconv"
	"strings"
)

// Truthy implements Core IL truthiness: null, false and numeric zero are
// falsy, everything else is truthy. No other type coerces.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case NullValue:
		return false
	case BoolValue:
		return val.Val
	case IntValue:
		return val.Val != 0
	case FloatValue:
		return val.Val != 0
	default:
		return true
	}
}

func isNumeric(v Value) bool {
	k := v.Kind()
	return k == KindInt || k == KindFloat
}

func asFloat(v Value) float64 {
	switch val := v.(type) {
	case IntValue:
		return float64(val.Val)
	case FloatValue:
		return val.Val
	default:
		return 0
	}
}

// Equal is defined for every pair of values. Ints and floats compare
// numerically; containers compare element-wise; distinct kinds are
// unequal.
func Equal(a, b Value) bool {
	if a.Kind() != b.Kind() {
		if isNumeric(a) && isNumeric(b) {
			return asFloat(a) == asFloat(b)
		}
		return false
	}
	switch av := a.(type) {
	case NullValue:
		return true
	case BoolValue:
		return av.Val == b.(BoolValue).Val
	case IntValue:
		return av.Val == b.(IntValue).Val
	case FloatValue:
		return av.Val == b.(FloatValue).Val
	case StringValue:
		return av.Val == b.(StringValue).Val
	case *ArrayValue:
		return itemsEqual(av.Items, b.(*ArrayValue).Items)
	case TupleValue:
		return itemsEqual(av.Items, b.(TupleValue).Items)
	case *MapValue:
		bv := b.(*MapValue)
		if av.Len() != bv.Len() {
			return false
		}
		for _, key := range av.Keys() {
			left, _, err := av.Get(key)
			if err != nil {
				return false
			}
			right, ok, err := bv.Get(key)
			if err != nil || !ok || !Equal(left, right) {
				return false
			}
		}
		return true
	case *SetValue:
		bv := b.(*SetValue)
		if av.Len() != bv.Len() {
			return false
		}
		for _, item := range av.Items() {
			if !bv.Has(item) {
				return false
			}
		}
		return true
	case *RecordValue:
		bv := b.(*RecordValue)
		if len(av.FieldNames()) != len(bv.FieldNames()) {
			return false
		}
		for _, name := range av.FieldNames() {
			left, _ := av.GetField(name)
			right, ok := bv.GetField(name)
			if !ok || !Equal(left, right) {
				return false
			}
		}
		return true
	default:
		// Deques and heaps compare by identity.
		return a == b
	}
}

func itemsEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Less orders numeric pairs and string pairs; any other pairing is a
// runtime error.
func Less(a, b Value) (bool, error) {
	if isNumeric(a) && isNumeric(b) {
		return asFloat(a) < asFloat(b), nil
	}
	if a.Kind() == KindString && b.Kind() == KindString {
		return a.(StringValue).Val < b.(StringValue).Val, nil
	}
	return false, Errorf("cannot compare %s and %s", a.Kind(), b.Kind())
}

// Add handles numeric addition and string concatenation.
func Add(a, b Value) (Value, error) {
	if a.Kind() == KindString && b.Kind() == KindString {
		return StringValue{Val: a.(StringValue).Val + b.(StringValue).Val}, nil
	}
	if a.Kind() == KindInt && b.Kind() == KindInt {
		return IntValue{Val: a.(IntValue).Val + b.(IntValue).Val}, nil
	}
	if isNumeric(a) && isNumeric(b) {
		return FloatValue{Val: asFloat(a) + asFloat(b)}, nil
	}
	return nil, Errorf("cannot add %s and %s", a.Kind(), b.Kind())
}

func Subtract(a, b Value) (Value, error) {
	if a.Kind() == KindInt && b.Kind() == KindInt {
		return IntValue{Val: a.(IntValue).Val - b.(IntValue).Val}, nil
	}
	if isNumeric(a) && isNumeric(b) {
		return FloatValue{Val: asFloat(a) - asFloat(b)}, nil
	}
	return nil, Errorf("cannot subtract %s and %s", a.Kind(), b.Kind())
}

func Multiply(a, b Value) (Value, error) {
	if a.Kind() == KindInt && b.Kind() == KindInt {
		return IntValue{Val: a.(IntValue).Val * b.(IntValue).Val}, nil
	}
	if isNumeric(a) && isNumeric(b) {
		return FloatValue{Val: asFloat(a) * asFloat(b)}, nil
	}
	return nil, Errorf("cannot multiply %s and %s", a.Kind(), b.Kind())
}

// Divide is real division: the result is always a float, matching the
// reference semantics even for two integer operands.
func Divide(a, b Value) (Value, error) {
	if !isNumeric(a) || !isNumeric(b) {
		return nil, Errorf("cannot divide %s by %s", a.Kind(), b.Kind())
	}
	bv := asFloat(b)
	if bv == 0 {
		return nil, Errorf("division by zero")
	}
	return FloatValue{Val: asFloat(a) / bv}, nil
}

// FloorDivide rounds toward negative infinity. Two ints produce an int.
func FloorDivide(a, b Value) (Value, error) {
	if !isNumeric(a) || !isNumeric(b) {
		return nil, Errorf("cannot divide %s by %s", a.Kind(), b.Kind())
	}
	if a.Kind() == KindInt && b.Kind() == KindInt {
		bv := b.(IntValue).Val
		if bv == 0 {
			return nil, Errorf("division by zero")
		}
		av := a.(IntValue).Val
		q := av / bv
		if (av%bv != 0) && ((av < 0) != (bv < 0)) {
			q--
		}
		return IntValue{Val: q}, nil
	}
	bv := asFloat(b)
	if bv == 0 {
		return nil, Errorf("division by zero")
	}
	return FloatValue{Val: math.Floor(asFloat(a) / bv)}, nil
}

// Modulo follows floor-mod semantics: the result carries the divisor's
// sign, for floats as well as ints.
func Modulo(a, b Value) (Value, error) {
	if !isNumeric(a) || !isNumeric(b) {
		return nil, Errorf("cannot modulo %s and %s", a.Kind(), b.Kind())
	}
	if a.Kind() == KindInt && b.Kind() == KindInt {
		bv := b.(IntValue).Val
		if bv == 0 {
			return nil, Errorf("modulo by zero")
		}
		r := a.(IntValue).Val % bv
		if r != 0 && (r < 0) != (bv < 0) {
			r += bv
		}
		return IntValue{Val: r}, nil
	}
	bv := asFloat(b)
	if bv == 0 {
		return nil, Errorf("modulo by zero")
	}
	r := math.Mod(asFloat(a), bv)
	if r != 0 && (r < 0) != (bv < 0) {
		r += bv
	}
	return FloatValue{Val: r}, nil
}

// ToInt truncates toward zero; strings parse as integers.
func ToInt(v Value) (Value, error) {
	switch val := v.(type) {
	case IntValue:
		return val, nil
	case FloatValue:
		return IntValue{Val: int64(math.Trunc(val.Val))}, nil
	case BoolValue:
		if val.Val {
			return IntValue{Val: 1}, nil
		}
		return IntValue{Val: 0}, nil
	case StringValue:
		n, err := strconv.ParseInt(strings.TrimSpace(val.Val), 10, 64)
		if err != nil {
			return nil, Errorf("cannot convert '%s' to int", val.Val)
		}
		return IntValue{Val: n}, nil
	default:
		return nil, Errorf("cannot convert %s to int", v.Kind())
	}
}

func ToFloat(v Value) (Value, error) {
	switch val := v.(type) {
	case FloatValue:
		return val, nil
	case IntValue:
		return FloatValue{Val: float64(val.Val)}, nil
	case BoolValue:
		if val.Val {
			return FloatValue{Val: 1}, nil
		}
		return FloatValue{Val: 0}, nil
	case StringValue:
		f, err := strconv.ParseFloat(strings.TrimSpace(val.Val), 64)
		if err != nil {
			return nil, Errorf("cannot convert '%s' to float", val.Val)
		}
		return FloatValue{Val: f}, nil
	default:
		return nil, Errorf("cannot convert %s to float", v.Kind())
	}
}

// ToString renders the value exactly as Print would.
func ToString(v Value) Value {
	return StringValue{Val: Format(v)}
}

// ResolveIndex applies Python-style negative indexing against a length.
// The boolean reports whether the resolved index is in [0, length).
func ResolveIndex(index int64, length int) (int, bool) {
	if index < 0 {
		index += int64(length)
	}
	if index < 0 || index >= int64(length) {
		return 0, false
	}
	return int(index), true
}

// ResolveSliceBounds resolves negative offsets and clamps to the valid
// range; slices never raise on out-of-range bounds.
func ResolveSliceBounds(start, end int64, length int) (int, int) {
	s := clampBound(start, length)
	e := clampBound(end, length)
	if s > e {
		return s, s
	}
	return s, e
}

func clampBound(bound int64, length int) int {
	if bound < 0 {
		bound += int64(length)
	}
	if bound < 0 {
		return 0
	}
	if bound > int64(length) {
		return length
	}
	return int(bound)
}
