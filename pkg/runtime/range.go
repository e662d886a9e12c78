package runtime

// RangeValue is an ascending integer sequence with step 1. It stays
// lazy so large loop bounds never materialize an array.
type RangeValue struct {
	From      int64
	To        int64
	Inclusive bool
}

func (*RangeValue) Kind() Kind { return KindRange }

// Bound is the exclusive upper bound.
func (r *RangeValue) Bound() int64 {
	if r.Inclusive {
		return r.To + 1
	}
	return r.To
}

func (r *RangeValue) Len() int {
	n := r.Bound() - r.From
	if n < 0 {
		return 0
	}
	return int(n)
}

// Contains reports whether n is still inside the iteration window.
func (r *RangeValue) Contains(n int64) bool { return n < r.Bound() }

func (r *RangeValue) Step() int64 { return 1 }

// At returns the i-th element; the caller checks bounds first.
func (r *RangeValue) At(i int) Value { return IntValue{Val: r.From + int64(i)} }
