package fst

// Walk calls fn for every key in ascending byte order together with its
// outputs, stopping early when fn returns false. The key slice is reused
// between calls; fn must copy it to retain it.
func (f *FST) Walk(fn func(key []byte, outputs [][]byte) bool) error {
	if len(f.data) == 0 {
		return nil
	}
	_, err := f.walk(0, nil, nil, fn)
	return err
}

func (f *FST) walk(pos int, key, prefix []byte, fn func([]byte, [][]byte) bool) (bool, error) {
	var rec arcRecord
	for {
		if err := decodeArc(f.data, pos, &rec); err != nil {
			return false, err
		}
		if rec.isFinal() {
			outputs := make([][]byte, 0, len(rec.finalOutputs))
			for _, o := range rec.finalOutputs {
				outputs = append(outputs, concat(prefix, o))
			}
			if !fn(key, normalizeOutputs(outputs)) {
				return false, nil
			}
		} else {
			more, err := f.walk(pos+rec.delta, append(key, rec.label), append(prefix, rec.output...), fn)
			if err != nil || !more {
				return more, err
			}
		}
		if rec.isLast() {
			return true, nil
		}
		pos += rec.size
	}
}

// Stats describes the records of a compiled automaton.
type Stats struct {
	Bytes          int `json:"bytes"`
	States         int `json:"states"`
	Arcs           int `json:"arcs"`
	ArcsWithOutput int `json:"arcs_with_output"`
	FinalStates    int `json:"final_states"`
	FinalOutputs   int `json:"final_outputs"`
}

// Stats scans the compiled bytes once. Every state ends with exactly one
// record flagged as its last, which is what States counts.
func (f *FST) Stats() (Stats, error) {
	st := Stats{Bytes: len(f.data)}
	var rec arcRecord
	for pos := 0; pos < len(f.data); pos += rec.size {
		if err := decodeArc(f.data, pos, &rec); err != nil {
			return Stats{}, err
		}
		if rec.isLast() {
			st.States++
		}
		if rec.isFinal() {
			st.FinalStates++
			st.FinalOutputs += len(rec.finalOutputs)
			continue
		}
		st.Arcs++
		if len(rec.output) > 0 {
			st.ArcsWithOutput++
		}
	}
	return st, nil
}
