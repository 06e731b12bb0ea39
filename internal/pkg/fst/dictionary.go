package fst

import (
	"github.com/cespare/xxhash/v2"
)

// Dictionary is the intern table of frozen states. Each structurally
// distinct state is stored once; ids are assigned in insertion order and
// entries are never removed.
type Dictionary struct {
	states []FrozenState

	// buckets maps the xxhash of a state's canonical encoding to the ids
	// sharing that hash.
	buckets map[uint64][]StateID

	scratch []byte
}

// NewDictionary creates an empty Dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{buckets: make(map[uint64][]StateID)}
}

// Intern returns the id of the frozen state equal to s, freezing a copy of
// s under a new id if no such state exists. s may be reused afterwards.
func (d *Dictionary) Intern(s *MutableState) StateID {
	d.scratch = s.appendCanonical(d.scratch[:0])
	h := xxhash.Sum64(d.scratch)
	for _, id := range d.buckets[h] {
		if s.equal(&d.states[id]) {
			return id
		}
	}
	id := StateID(len(d.states))
	d.states = append(d.states, s.freeze(id))
	d.buckets[h] = append(d.buckets[h], id)
	return id
}

// Len returns the number of frozen states.
func (d *Dictionary) Len() int { return len(d.states) }

// State returns the frozen state with the given id.
func (d *Dictionary) State(id StateID) FrozenState { return d.states[id] }

// Range calls fn for every state in intern order until fn returns false.
func (d *Dictionary) Range(fn func(s FrozenState) bool) {
	for _, s := range d.states {
		if !fn(s) {
			return
		}
	}
}

// ArcCount returns the total number of arcs over all states.
func (d *Dictionary) ArcCount() int {
	n := 0
	for _, s := range d.states {
		n += len(s.Arcs)
	}
	return n
}
