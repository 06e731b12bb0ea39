package fst

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/endorses/lexfst/internal/pkg/logger"
)

var (
	// ErrUnsortedInput is returned when a key sorts before its predecessor.
	ErrUnsortedInput = errors.New("fst: keys are not in sorted order")

	// ErrBuilderFinished is returned when a Builder is used after Finish.
	ErrBuilderFinished = errors.New("fst: builder already finished")
)

// Automaton is a fully minimized transducer ready to be compiled.
type Automaton struct {
	// Dict holds every frozen state in intern order.
	Dict *Dictionary

	// Root is the start state. It is always the last state interned.
	Root StateID

	// Alphabet holds every label byte used by the keys.
	Alphabet Alphabet

	// Pairs is the number of (key, output) pairs added.
	Pairs int

	// Keys is the number of distinct keys.
	Keys int
}

// Builder constructs a minimal Automaton from pairs added in non-decreasing
// key order. Duplicate keys must be adjacent; their outputs are merged into
// one final output set.
//
// The builder keeps one transient state per depth of the key being added.
// When the next key diverges from the previous one at depth p, the states of
// the previous key below p can no longer change and are interned. Outputs on
// the shared prefix are split so that only their common part stays on the
// shared arcs; the rest is pushed one level down.
type Builder struct {
	dict     *Dictionary
	path     []*MutableState
	prevKey  []byte
	hasPrev  bool
	alphabet Alphabet
	pairs    int
	keys     int
	err      error
	finished bool
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		dict: NewDictionary(),
		path: []*MutableState{{}},
	}
}

// Add appends a pair. key must not sort before the previously added key.
// The builder copies key and output, so callers may reuse their buffers.
// Once Add fails the builder stays failed.
func (b *Builder) Add(key, output []byte) error {
	if b.finished {
		return ErrBuilderFinished
	}
	if b.err != nil {
		return b.err
	}
	if b.hasPrev && bytes.Compare(key, b.prevKey) < 0 {
		b.err = fmt.Errorf("%w: %q after %q", ErrUnsortedInput, key, b.prevKey)
		return b.err
	}

	cur := bytes.Clone(key)
	out := bytes.Clone(output)
	for _, c := range cur {
		b.alphabet.Add(c)
	}

	prev := b.prevKey
	p := commonPrefixLen(prev, cur)
	b.grow(len(cur) + 1)

	// Nothing below depth p on the previous key can change anymore.
	b.freeze(prev, p)

	for i := p + 1; i <= len(cur); i++ {
		b.path[i].Clear()
		b.path[i-1].SetTransition(cur[i-1], noState)
	}

	homophone := b.hasPrev && p == len(cur) && p == len(prev)
	if !homophone {
		last := b.path[len(cur)]
		last.SetFinal(true)
		last.SetFinalOutputs([][]byte{{}})
		b.keys++
	}

	for j := 1; j <= p; j++ {
		parent := b.path[j-1]
		existing := parent.Output(cur[j-1])
		n := commonPrefixLen(existing, out)
		parent.SetOutput(cur[j-1], existing[:n])
		if suffix := existing[n:]; len(suffix) > 0 {
			b.path[j].prependOutput(suffix)
		}
		out = out[n:]
	}

	switch {
	case homophone:
		b.path[len(cur)].AddFinalOutput(out)
	case p < len(cur):
		b.path[p].SetOutput(cur[p], out)
	default:
		// Only an empty first key gets here: the root itself is final.
		b.path[len(cur)].SetFinalOutputs([][]byte{out})
	}

	b.prevKey = cur
	b.hasPrev = true
	b.pairs++
	return nil
}

// Finish interns the remaining path and returns the automaton. The builder
// cannot be used afterwards.
func (b *Builder) Finish() (*Automaton, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.finished {
		return nil, ErrBuilderFinished
	}
	b.finished = true

	b.freeze(b.prevKey, 0)
	root := b.dict.Intern(b.path[0])

	logger.Debug("fst build finished",
		"pairs", b.pairs,
		"keys", b.keys,
		"states", b.dict.Len(),
		"arcs", b.dict.ArcCount(),
		"alphabet", b.alphabet.Len())

	return &Automaton{
		Dict:     b.dict,
		Root:     root,
		Alphabet: b.alphabet,
		Pairs:    b.pairs,
		Keys:     b.keys,
	}, nil
}

// freeze interns the path states of key from depth len(key) down to p+1 and
// links each one into its parent.
func (b *Builder) freeze(key []byte, p int) {
	for i := len(key); i > p; i-- {
		id := b.dict.Intern(b.path[i])
		b.path[i-1].SetTransition(key[i-1], id)
	}
}

func (b *Builder) grow(n int) {
	for len(b.path) < n {
		b.path = append(b.path, &MutableState{})
	}
}

// Build runs a Builder over pairs, which must already be sorted by key.
func Build(pairs []Pair) (*Automaton, error) {
	b := NewBuilder()
	for _, p := range pairs {
		if err := b.Add(p.Key, p.Output); err != nil {
			return nil, err
		}
	}
	return b.Finish()
}
