package fst

import "math/bits"

// Alphabet is the set of label bytes seen by a Builder.
type Alphabet [4]uint64

// Add inserts b.
func (a *Alphabet) Add(b byte) { a[b>>6] |= 1 << (b & 63) }

// Has reports whether b is in the set.
func (a *Alphabet) Has(b byte) bool { return a[b>>6]&(1<<(b&63)) != 0 }

// Len returns the number of distinct bytes.
func (a *Alphabet) Len() int {
	n := 0
	for _, w := range a {
		n += bits.OnesCount64(w)
	}
	return n
}

// Bytes returns the members in ascending order.
func (a *Alphabet) Bytes() []byte {
	out := make([]byte, 0, a.Len())
	for c := 0; c < 256; c++ {
		if a.Has(byte(c)) {
			out = append(out, byte(c))
		}
	}
	return out
}
