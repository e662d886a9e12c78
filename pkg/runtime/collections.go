package runtime

import (
	"container/heap"
	"strconv"
	"strings"
)

// mapKey builds an injective encoding of a hashable value. Map keys are
// compared by value, so two equal tuples address the same entry.
// Booleans hash as their integer values, so true addresses the same
// entry as 1.
func mapKey(v Value) (string, error) {
	switch val := v.(type) {
	case StringValue:
		return "s:" + strconv.Quote(val.Val), nil
	case IntValue:
		return "i:" + strconv.FormatInt(val.Val, 10), nil
	case BoolValue:
		if val.Val {
			return "i:1", nil
		}
		return "i:0", nil
	case TupleValue:
		parts := make([]string, len(val.Items))
		for i, item := range val.Items {
			key, err := mapKey(item)
			if err != nil {
				return "", err
			}
			parts[i] = key
		}
		return "t:(" + strings.Join(parts, ",") + ")", nil
	case *ArrayValue:
		// Pre-0.5 documents use array keys; they hash like tuples.
		return mapKey(TupleValue{Items: val.Items})
	default:
		return "", Errorf("map key must be a string, integer, or tuple, got %s", v.Kind())
	}
}

type mapEntry struct {
	key   Value
	value Value
}

// MapValue is insertion-ordered. Re-inserting an existing key replaces
// the value but keeps the key's original position.
type MapValue struct {
	order   []string
	entries map[string]mapEntry
}

func NewMap() *MapValue {
	return &MapValue{entries: map[string]mapEntry{}}
}

func (m *MapValue) Len() int { return len(m.order) }

func (m *MapValue) Set(key, value Value) error {
	hash, err := mapKey(key)
	if err != nil {
		return err
	}
	if existing, exists := m.entries[hash]; exists {
		// Replacing keeps the first-inserted key, so {true: 1} updated
		// through key 1 still prints its key as True.
		m.entries[hash] = mapEntry{key: existing.key, value: value}
		return nil
	}
	m.order = append(m.order, hash)
	m.entries[hash] = mapEntry{key: key, value: value}
	return nil
}

func (m *MapValue) Get(key Value) (Value, bool, error) {
	hash, err := mapKey(key)
	if err != nil {
		return nil, false, err
	}
	entry, ok := m.entries[hash]
	if !ok {
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Keys returns the keys in insertion order.
func (m *MapValue) Keys() []Value {
	keys := make([]Value, len(m.order))
	for i, hash := range m.order {
		keys[i] = m.entries[hash].key
	}
	return keys
}

// Values returns the values in key insertion order.
func (m *MapValue) Values() []Value {
	values := make([]Value, len(m.order))
	for i, hash := range m.order {
		values[i] = m.entries[hash].value
	}
	return values
}

// SetValue is insertion-ordered; membership is by value equality.
type SetValue struct {
	order   []string
	entries map[string]Value
}

func NewSet() *SetValue {
	return &SetValue{entries: map[string]Value{}}
}

func setKey(v Value) string {
	if key, err := mapKey(v); err == nil {
		return key
	}
	// Unhashable kinds fall back to their printed form.
	return "r:" + Repr(v)
}

func (s *SetValue) Len() int { return len(s.order) }

func (s *SetValue) Add(v Value) {
	key := setKey(v)
	if _, exists := s.entries[key]; exists {
		return
	}
	s.order = append(s.order, key)
	s.entries[key] = v
}

func (s *SetValue) Remove(v Value) {
	key := setKey(v)
	if _, exists := s.entries[key]; !exists {
		return
	}
	delete(s.entries, key)
	for i, existing := range s.order {
		if existing == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *SetValue) Has(v Value) bool {
	_, ok := s.entries[setKey(v)]
	return ok
}

// Items returns the members in insertion order.
func (s *SetValue) Items() []Value {
	items := make([]Value, len(s.order))
	for i, key := range s.order {
		items[i] = s.entries[key]
	}
	return items
}

// RecordValue has named mutable fields, iterated in definition order.
type RecordValue struct {
	order  []string
	fields map[string]Value
}

func NewRecord() *RecordValue {
	return &RecordValue{fields: map[string]Value{}}
}

func (r *RecordValue) SetField(name string, value Value) {
	if _, exists := r.fields[name]; !exists {
		r.order = append(r.order, name)
	}
	r.fields[name] = value
}

func (r *RecordValue) GetField(name string) (Value, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// FieldNames returns the field names in definition order.
func (r *RecordValue) FieldNames() []string {
	return r.order
}

// DequeValue is a double-ended queue.
type DequeValue struct{ items []Value }

func NewDeque() *DequeValue { return &DequeValue{} }

func (d *DequeValue) Len() int { return len(d.items) }

func (d *DequeValue) PushBack(v Value)  { d.items = append(d.items, v) }
func (d *DequeValue) PushFront(v Value) { d.items = append([]Value{v}, d.items...) }

func (d *DequeValue) PopFront() (Value, error) {
	if len(d.items) == 0 {
		return nil, Errorf("pop from an empty deque")
	}
	v := d.items[0]
	d.items = d.items[1:]
	return v, nil
}

func (d *DequeValue) PopBack() (Value, error) {
	if len(d.items) == 0 {
		return nil, Errorf("pop from an empty deque")
	}
	v := d.items[len(d.items)-1]
	d.items = d.items[:len(d.items)-1]
	return v, nil
}

type heapItem struct {
	priority float64
	seq      int
	value    Value
}

// HeapValue is a min-heap ordered by priority; equal priorities pop in
// insertion order.
type HeapValue struct {
	items []heapItem
	seq   int
}

func NewHeap() *HeapValue { return &HeapValue{} }

func (h *HeapValue) Len() int { return len(h.items) }

func (h *HeapValue) Push(priority, value Value) error {
	p, err := numericPriority(priority)
	if err != nil {
		return err
	}
	h.items = append(h.items, heapItem{priority: p, seq: h.seq, value: value})
	h.seq++
	heap.Fix((*heapOrder)(h), len(h.items)-1)
	return nil
}

func (h *HeapValue) Pop() (Value, error) {
	if len(h.items) == 0 {
		return nil, Errorf("pop from an empty heap")
	}
	item := heap.Pop((*heapOrder)(h)).(heapItem)
	return item.value, nil
}

func (h *HeapValue) Peek() (Value, error) {
	if len(h.items) == 0 {
		return nil, Errorf("peek at an empty heap")
	}
	return h.items[0].value, nil
}

func numericPriority(v Value) (float64, error) {
	switch val := v.(type) {
	case IntValue:
		return float64(val.Val), nil
	case FloatValue:
		return val.Val, nil
	default:
		return 0, Errorf("heap priority must be a number, got %s", v.Kind())
	}
}

// heapOrder adapts HeapValue to container/heap with the (priority, seq)
// ordering that makes ties stable.
type heapOrder HeapValue

func (h *heapOrder) Len() int { return len(h.items) }

func (h *heapOrder) Less(i, j int) bool {
	if h.items[i].priority != h.items[j].priority {
		return h.items[i].priority < h.items[j].priority
	}
	return h.items[i].seq < h.items[j].seq
}

func (h *heapOrder) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *heapOrder) Push(x any) { h.items = append(h.items, x.(heapItem)) }

func (h *heapOrder) Pop() any {
	last := len(h.items) - 1
	item := h.items[last]
	h.items = h.items[:last]
	return item
}

var _ heap.Interface = (*heapOrder)(nil)
