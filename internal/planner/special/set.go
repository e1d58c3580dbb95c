package special

import "fmt"

// Limits bound the base allocation of a Set.
type Limits struct {
	Min  int
	Max  int
	Pool int // upper bound on the sum of all seven base values
}

// DeltaSource supplies bonus deltas for effective values.
type DeltaSource interface {
	Delta(a Attribute) int
}

// RangeError reports a rejected base allocation.
type RangeError struct {
	Attribute Attribute
	Value     int
	Msg       string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Attribute, e.Value, e.Msg)
}

// Set holds base values. The zero value is not legal; use NewSet.
type Set struct {
	base [Count]int
}

// NewSet returns every attribute at lim.Min.
func NewSet(lim Limits) Set {
	var s Set
	for i := range s.base {
		s.base[i] = lim.Min
	}
	return s
}

func (s Set) Base(a Attribute) int {
	if !a.Valid() {
		return 0
	}
	return s.base[a]
}

// Effective is base plus every delta the source reports for a.
func (s Set) Effective(a Attribute, src DeltaSource) int {
	v := s.Base(a)
	if src != nil {
		v += src.Delta(a)
	}
	return v
}

func (s Set) Sum() int {
	n := 0
	for _, v := range s.base {
		n += v
	}
	return n
}

// Assigned counts points allocated above the minimum.
func (s Set) Assigned(lim Limits) int {
	return s.Sum() - Count*lim.Min
}

// Remaining counts points still available in the pool.
func (s Set) Remaining(lim Limits) int {
	if r := lim.Pool - s.Sum(); r > 0 {
		return r
	}
	return 0
}

// WithBase returns a copy with a set to value, or a *RangeError. The
// receiver is never modified.
func (s Set) WithBase(a Attribute, value int, lim Limits) (Set, error) {
	if !a.Valid() {
		return s, &RangeError{Attribute: a, Value: value, Msg: "unknown attribute"}
	}
	if value < lim.Min || value > lim.Max {
		return s, &RangeError{Attribute: a, Value: value, Msg: fmt.Sprintf("must be in range %d..%d", lim.Min, lim.Max)}
	}
	next := s
	next.base[a] = value
	if lim.Pool > 0 && next.Sum() > lim.Pool {
		return s, &RangeError{Attribute: a, Value: value, Msg: fmt.Sprintf("allocation pool of %d exceeded by %d", lim.Pool, next.Sum()-lim.Pool)}
	}
	return next, nil
}

// SetBase updates a in place; on error s is unchanged.
func (s *Set) SetBase(a Attribute, value int, lim Limits) error {
	next, err := s.WithBase(a, value, lim)
	if err != nil {
		return err
	}
	*s = next
	return nil
}
