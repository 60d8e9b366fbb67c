// Package frontier implements antichains over a timestamp type T: unordered
// sets of pairwise-incomparable timestamps used to describe "time has
// advanced to at least this point" throughout persist.
package frontier

import "sort"

// TimeStamp is the constraint persist places on its logical-time type: it
// must be encodable as an 8-byte little-endian value, support a partial
// order, and have a well-defined minimum element.
type TimeStamp interface {
	comparable

	// LessEqual reports whether t precedes or equals other in the partial
	// order over T.
	LessEqual(other any) bool

	// Encode writes t as 8 little-endian bytes.
	Encode() [8]byte
}

// Ordered is implemented by timestamp types that additionally admit a
// total order (most concrete persist deployments use one, e.g. u64 or
// mz_repr::Timestamp). Antichain does not check for Ordered: every
// TimeStamp, totally ordered or not, goes through the same pairwise O(n^2)
// reduction in Insert.
type Ordered interface {
	TimeStamp
	Less(other any) bool
}

// Antichain is an unordered set of pairwise-incomparable elements of T. Two
// antichains are equal iff they contain the same elements, irrespective of
// order.
type Antichain[T TimeStamp] struct {
	elements []T
}

// New builds an antichain from the given elements, reducing it to the
// minimal antichain that dominates the same set of times (removing any
// element that is LessEqual another).
func New[T TimeStamp](elements ...T) Antichain[T] {
	a := Antichain[T]{}
	for _, e := range elements {
		a.Insert(e)
	}
	return a
}

// Empty returns the antichain containing no elements — the frontier that
// has not advanced at all, and dominates every other antichain.
func Empty[T TimeStamp]() Antichain[T] {
	return Antichain[T]{}
}

// Insert adds e to the antichain, discarding e if it is dominated by an
// existing element and discarding existing elements dominated by e.
func (a *Antichain[T]) Insert(e T) {
	kept := a.elements[:0:0]
	for _, cur := range a.elements {
		if cur == e {
			return
		}
		if e.LessEqual(cur) {
			// e dominates cur; cur is now redundant.
			continue
		}
		if cur.LessEqual(e) {
			// cur dominates e; e is redundant, nothing further to do.
			return
		}
		kept = append(kept, cur)
	}
	kept = append(kept, e)
	a.elements = kept
}

// Elements returns the antichain's elements in unspecified order. Callers
// must not mutate the returned slice.
func (a Antichain[T]) Elements() []T {
	return a.elements
}

// Len reports the number of elements in the antichain.
func (a Antichain[T]) Len() int { return len(a.elements) }

// IsEmpty reports whether the antichain contains no elements.
func (a Antichain[T]) IsEmpty() bool { return len(a.elements) == 0 }

// LessEqual reports whether a's frontier is behind or equal to b's: every
// element of a is LessEqual some element of b. The empty antichain is
// LessEqual every antichain, including itself.
func (a Antichain[T]) LessEqual(b Antichain[T]) bool {
	for _, ae := range a.elements {
		ok := false
		for _, be := range b.elements {
			if ae.LessEqual(be) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// Less reports whether a strictly precedes b: a.LessEqual(b) and a != b.
func (a Antichain[T]) Less(b Antichain[T]) bool {
	return a.LessEqual(b) && !a.Equal(b)
}

// Equal reports structural equality between two antichains, irrespective
// of element order.
func (a Antichain[T]) Equal(b Antichain[T]) bool {
	if len(a.elements) != len(b.elements) {
		return false
	}
	return a.LessEqual(b) && b.LessEqual(a)
}

// Fingerprint returns a deterministic string key for the antichain, sorting
// its encoded elements so that set-membership containers (e.g. a batch
// spine keyed by bounds) can dedupe independent of insertion order.
func (a Antichain[T]) Fingerprint() string {
	encoded := make([]string, 0, len(a.elements))
	for _, e := range a.elements {
		b := e.Encode()
		encoded = append(encoded, string(b[:]))
	}
	sort.Strings(encoded)
	out := make([]byte, 0, len(encoded)*9)
	for _, e := range encoded {
		out = append(out, '|')
		out = append(out, e...)
	}
	return string(out)
}

// MapAntichain converts an antichain over A into one over B via f. Used to
// turn a raw, wire-decoded antichain into one over a concrete timestamp
// type once its codec is known.
func MapAntichain[A TimeStamp, B TimeStamp](a Antichain[A], f func(A) B) Antichain[B] {
	out := Antichain[B]{}
	for _, e := range a.elements {
		out.Insert(f(e))
	}
	return out
}

// Description bounds a batch's time interval and compaction watermark: the
// batch covers updates at times within [lower, upper), and has been
// compacted (consolidated) up to `since`.
type Description[T TimeStamp] struct {
	Lower Antichain[T]
	Upper Antichain[T]
	Since Antichain[T]
}

// NewDescription builds a Description from its three antichains.
func NewDescription[T TimeStamp](lower, upper, since Antichain[T]) Description[T] {
	return Description[T]{Lower: lower, Upper: upper, Since: since}
}
