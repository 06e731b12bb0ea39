package fst

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FST is a compiled automaton. It is immutable and safe for concurrent use.
type FST struct {
	data []byte
}

// New wraps bytes produced by Compile (for instance read back from disk).
// The slice is used in place and must not be modified afterwards.
func New(data []byte) *FST {
	return &FST{data: data}
}

// Bytes returns the compiled representation. Callers must not modify it.
func (f *FST) Bytes() []byte { return f.data }

// Size returns the compiled size in bytes.
func (f *FST) Size() int { return len(f.data) }

// Compile serializes a into its compact byte form. The output depends only on
// the automaton's content, so compiling equal automata yields equal bytes.
func Compile(a *Automaton) *FST {
	data, _ := compile(a)
	return &FST{data: data}
}

// compile emits the states in intern order, children before parents, then
// reverses the record sequence so the root comes first. It also returns each
// state's address in emission order: the emission offset just past its last
// record.
//
// Within a state, arcs are emitted from the highest label down and the final
// pseudo-arc last, so after reversal a decoder sees the final marker first,
// then the arcs in ascending label order, the last one flagged flagLastArc.
func compile(a *Automaton) ([]byte, []uint32) {
	n := a.Dict.Len()
	if n > 0 && int(a.Root) != n-1 {
		panic(fmt.Sprintf("fst: root state %d is not the last of %d states", a.Root, n))
	}

	var (
		buf    []byte
		starts []int // emission offset of every record
		addrs  = make([]uint32, n)
	)

	for id := range n {
		s := &a.Dict.states[id]

		for i := len(s.Arcs) - 1; i >= 0; i-- {
			arc := s.Arcs[i]
			if int(arc.Target) >= id {
				panic(fmt.Sprintf("fst: state %d references state %d which has no address yet", id, arc.Target))
			}
			starts = append(starts, len(buf))

			var flag byte
			if i == len(s.Arcs)-1 {
				flag |= flagLastArc
			}
			if len(arc.Output) > 0 {
				flag |= flagHasOutput
			}
			buf = append(buf, flag, arc.Label)
			if len(arc.Output) > 0 {
				buf = binary.LittleEndian.AppendUint32(buf, uint32(len(arc.Output)))
				buf = append(buf, arc.Output...)
			}
			end := len(buf) + u32Size
			delta := end - int(addrs[arc.Target])
			if delta <= 0 {
				panic(fmt.Sprintf("fst: non-positive target delta %d for state %d", delta, id))
			}
			buf = binary.LittleEndian.AppendUint32(buf, uint32(delta))
		}

		if s.Final {
			starts = append(starts, len(buf))

			flag := byte(flagFinalArc)
			hasOutput := false
			for _, o := range s.FinalOutputs {
				if len(o) > 0 {
					hasOutput = true
					break
				}
			}
			if hasOutput {
				flag |= flagHasFinalOutput
			}
			if len(s.Arcs) == 0 {
				flag |= flagLastArc
			}
			buf = append(buf, flag)
			if hasOutput {
				buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.FinalOutputs)))
				for _, o := range s.FinalOutputs {
					buf = binary.LittleEndian.AppendUint32(buf, uint32(len(o)))
					buf = append(buf, o...)
				}
			}
		}

		if len(buf) > math.MaxUint32 {
			panic("fst: compiled automaton exceeds 4 GiB")
		}
		addrs[id] = uint32(len(buf))
	}

	out := make([]byte, 0, len(buf))
	end := len(buf)
	for i := len(starts) - 1; i >= 0; i-- {
		out = append(out, buf[starts[i]:end]...)
		end = starts[i]
	}
	return out, addrs
}
