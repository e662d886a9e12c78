// Package runtime holds the dynamic value model shared by the
// interpreter and the tests: the closed value union, the ordered
// collections, operator semantics, and print formatting. Every backend's
// emitted runtime support mirrors the behavior defined here.
package runtime

import "fmt"

// Kind discriminates the closed value union.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindTuple
	KindMap
	KindSet
	KindRecord
	KindDeque
	KindHeap
	KindRange
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindTuple:
		return "tuple"
	case KindMap:
		return "map"
	case KindSet:
		return "set"
	case KindRecord:
		return "record"
	case KindDeque:
		return "deque"
	case KindHeap:
		return "heap"
	case KindRange:
		return "range"
	default:
		return "unknown"
	}
}

// Value is one Core IL dynamic value.
type Value interface {
	Kind() Kind
}

type NullValue struct{}

type BoolValue struct{ Val bool }

type IntValue struct{ Val int64 }

type FloatValue struct{ Val float64 }

type StringValue struct{ Val string }

// ArrayValue is ordered and mutable; statements like Push and SetIndex
// mutate it in place, so it is always handled by pointer.
type ArrayValue struct{ Items []Value }

// TupleValue is immutable and usable as a map key.
type TupleValue struct{ Items []Value }

func (NullValue) Kind() Kind    { return KindNull }
func (BoolValue) Kind() Kind    { return KindBool }
func (IntValue) Kind() Kind     { return KindInt }
func (FloatValue) Kind() Kind   { return KindFloat }
func (StringValue) Kind() Kind  { return KindString }
func (*ArrayValue) Kind() Kind  { return KindArray }
func (TupleValue) Kind() Kind   { return KindTuple }
func (*MapValue) Kind() Kind    { return KindMap }
func (*SetValue) Kind() Kind    { return KindSet }
func (*RecordValue) Kind() Kind { return KindRecord }
func (*DequeValue) Kind() Kind  { return KindDeque }
func (*HeapValue) Kind() Kind   { return KindHeap }

// Error is a Core IL runtime failure. Its message is what a TryCatch
// inside the document observes; user throws and internal faults share
// this one representation on purpose.
type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

// Errorf builds a runtime error.
func Errorf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}
