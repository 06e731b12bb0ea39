package fst

import (
	"bytes"
	"encoding/binary"
	"slices"
)

// StateID identifies a frozen state. Ids are dense and follow intern order,
// so every state's children have smaller ids than the state itself.
type StateID uint32

// noState marks a transition whose target is still on the builder path.
const noState = ^StateID(0)

// Arc is one labelled transition of a frozen state.
type Arc struct {
	Label  byte
	Output []byte
	Target StateID
}

// FrozenState is an interned state. It is never modified after creation.
type FrozenState struct {
	ID    StateID
	Final bool

	// Arcs are sorted by label; labels are unique.
	Arcs []Arc

	// FinalOutputs are sorted and unique. Empty unless Final is set.
	FinalOutputs [][]byte
}

type mutableArc struct {
	label  byte
	output []byte
	target StateID
}

// MutableState is a transient state on the builder path. It is reused across
// keys through Clear and turned into a FrozenState by Dictionary.Intern.
type MutableState struct {
	final        bool
	arcs         []mutableArc // sorted by label
	finalOutputs [][]byte     // set semantics, insertion order
}

func (s *MutableState) find(label byte) (int, bool) {
	return slices.BinarySearchFunc(s.arcs, label, func(a mutableArc, l byte) int {
		return int(a.label) - int(l)
	})
}

// SetTransition points the arc labelled label at target, creating the arc
// with an empty output if it does not exist yet. An existing output is kept.
func (s *MutableState) SetTransition(label byte, target StateID) {
	i, ok := s.find(label)
	if ok {
		s.arcs[i].target = target
		return
	}
	s.arcs = slices.Insert(s.arcs, i, mutableArc{label: label, target: target})
}

// HasTransition reports whether an arc labelled label exists.
func (s *MutableState) HasTransition(label byte) bool {
	_, ok := s.find(label)
	return ok
}

// Output returns the output of the arc labelled label, or nil.
func (s *MutableState) Output(label byte) []byte {
	i, ok := s.find(label)
	if !ok {
		return nil
	}
	return s.arcs[i].output
}

// SetOutput replaces the output of an existing arc. It is a no-op when the
// arc does not exist.
func (s *MutableState) SetOutput(label byte, out []byte) {
	if i, ok := s.find(label); ok {
		s.arcs[i].output = out
	}
}

// IsFinal reports whether the state accepts.
func (s *MutableState) IsFinal() bool { return s.final }

// SetFinal sets the finality flag.
func (s *MutableState) SetFinal(final bool) { s.final = final }

// FinalOutputs returns the final output set. Callers must not modify it.
func (s *MutableState) FinalOutputs() [][]byte { return s.finalOutputs }

// SetFinalOutputs replaces the final output set. Duplicates collapse.
func (s *MutableState) SetFinalOutputs(outs [][]byte) {
	s.finalOutputs = s.finalOutputs[:0]
	for _, o := range outs {
		s.AddFinalOutput(o)
	}
}

// AddFinalOutput adds out to the final output set unless already present.
func (s *MutableState) AddFinalOutput(out []byte) {
	for _, o := range s.finalOutputs {
		if bytes.Equal(o, out) {
			return
		}
	}
	s.finalOutputs = append(s.finalOutputs, out)
}

// Clear resets the state so the slot can be reused for another depth.
func (s *MutableState) Clear() {
	s.final = false
	s.arcs = s.arcs[:0]
	s.finalOutputs = s.finalOutputs[:0]
}

// prependOutput pushes suffix in front of every arc output and, for final
// states, every final output.
func (s *MutableState) prependOutput(suffix []byte) {
	for i := range s.arcs {
		s.arcs[i].output = concat(suffix, s.arcs[i].output)
	}
	if !s.final {
		return
	}
	for i, o := range s.finalOutputs {
		s.finalOutputs[i] = concat(suffix, o)
	}
}

// sortedFinalOutputs returns a sorted copy of the final output set.
func (s *MutableState) sortedFinalOutputs() [][]byte {
	if len(s.finalOutputs) == 0 {
		return nil
	}
	outs := slices.Clone(s.finalOutputs)
	slices.SortFunc(outs, bytes.Compare)
	return outs
}

// appendCanonical appends an encoding of the state's shape to dst. Two
// states have the same encoding exactly when they are structurally equal.
// Every arc target must already be interned.
func (s *MutableState) appendCanonical(dst []byte) []byte {
	if s.final {
		dst = append(dst, 1)
	} else {
		dst = append(dst, 0)
	}
	dst = binary.AppendUvarint(dst, uint64(len(s.arcs)))
	for _, a := range s.arcs {
		if a.target == noState {
			panic("fst: interning a state with a transient arc target")
		}
		dst = append(dst, a.label)
		dst = binary.AppendUvarint(dst, uint64(a.target))
		dst = binary.AppendUvarint(dst, uint64(len(a.output)))
		dst = append(dst, a.output...)
	}
	if !s.final {
		return dst
	}
	outs := s.sortedFinalOutputs()
	dst = binary.AppendUvarint(dst, uint64(len(outs)))
	for _, o := range outs {
		dst = binary.AppendUvarint(dst, uint64(len(o)))
		dst = append(dst, o...)
	}
	return dst
}

// equal reports whether s has the same shape as the frozen state f.
func (s *MutableState) equal(f *FrozenState) bool {
	if s.final != f.Final || len(s.arcs) != len(f.Arcs) {
		return false
	}
	for i, a := range s.arcs {
		b := f.Arcs[i]
		if a.label != b.Label || a.target != b.Target || !bytes.Equal(a.output, b.Output) {
			return false
		}
	}
	if !s.final {
		return true
	}
	if len(s.finalOutputs) != len(f.FinalOutputs) {
		return false
	}
	for _, o := range s.finalOutputs {
		if _, found := slices.BinarySearchFunc(f.FinalOutputs, o, bytes.Compare); !found {
			return false
		}
	}
	return true
}

// freeze returns an independent, immutable copy of s.
func (s *MutableState) freeze(id StateID) FrozenState {
	f := FrozenState{ID: id, Final: s.final}
	if len(s.arcs) > 0 {
		f.Arcs = make([]Arc, len(s.arcs))
		for i, a := range s.arcs {
			f.Arcs[i] = Arc{Label: a.label, Output: bytes.Clone(a.output), Target: a.target}
		}
	}
	if s.final {
		outs := s.sortedFinalOutputs()
		for i, o := range outs {
			outs[i] = bytes.Clone(o)
		}
		f.FinalOutputs = outs
	}
	return f
}
