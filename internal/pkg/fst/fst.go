// Package fst implements a minimal acyclic finite-state transducer.
//
// A Builder consumes (key, output) pairs in sorted key order and produces a
// minimal Automaton: structurally identical states are interned once, and arc
// outputs are pushed towards the root so that sibling branches differing only
// in their output suffix can still share states. Compile serializes the
// automaton into a flat byte array which the FST type walks directly for
// lookups, without ever materializing states again.
//
// Keys may repeat (homophones); all outputs attached to the same key are
// returned together as a set.
//
// A compiled FST is immutable and safe for concurrent use by any number of
// goroutines. Builders are not.
package fst

import (
	"bytes"
	"slices"
)

// Pair is one (key, output) entry fed to the Builder.
type Pair struct {
	// Key is the input byte string.
	Key []byte

	// Output is the value attached to Key. It may be empty.
	Output []byte
}

// Result is the outcome of a lookup.
type Result struct {
	// Accepted reports whether a final state was reached.
	Accepted bool

	// Outputs holds every output collected, sorted and without duplicates.
	Outputs [][]byte
}

// Strings returns the outputs as strings.
func (r Result) Strings() []string {
	out := make([]string, len(r.Outputs))
	for i, o := range r.Outputs {
		out[i] = string(o)
	}
	return out
}

// PrefixMatch is one key found as a prefix of a query.
type PrefixMatch struct {
	// Length is the number of query bytes the key covers.
	Length int

	// Outputs holds the outputs of the key, sorted and without duplicates.
	Outputs [][]byte
}

// normalizeOutputs sorts outs and removes duplicates in place.
func normalizeOutputs(outs [][]byte) [][]byte {
	slices.SortFunc(outs, bytes.Compare)
	return slices.CompactFunc(outs, bytes.Equal)
}

func commonPrefixLen(a, b []byte) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// concat returns a new slice holding a followed by b. The arguments are
// never written to, so outputs shared between states stay intact.
func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
